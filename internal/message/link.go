package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// LinkType is the kind of a link message.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

func (t LinkType) String() string {
	switch t {
	case LinkTypeHard:
		return "hard"
	case LinkTypeSoft:
		return "soft"
	case LinkTypeExternal:
		return "external"
	}
	return fmt.Sprintf("link(%d)", uint8(t))
}

// Link names one child of a group (type 0x0006).
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string
	Charset       CharacterSet

	// Hard links.
	ObjectAddress uint64

	// Soft links: an absolute or group-relative path.
	SoftLinkValue string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool { return m.LinkType == LinkTypeSoft }

// NewHardLink returns a link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// NewSoftLink returns a link that resolves target by path at access time.
func NewSoftLink(name, target string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeSoft, Name: name, SoftLinkValue: target}
}

const (
	linkFlagOrder   = 0x04
	linkFlagType    = 0x08
	linkFlagCharset = 0x10
)

func (m *Link) flags() (flags uint8, width int) {
	flags, width = nameLenWidth(len(m.Name))
	if m.LinkType != LinkTypeHard {
		flags |= linkFlagType
	}
	if !isASCII(m.Name) {
		flags |= linkFlagCharset
	}
	return flags, width
}

// Serialize writes a version 1 link message.
func (m *Link) Serialize(w *binary.Writer) error {
	flags, width := m.flags()
	if err := w.WriteUint8(1); err != nil {
		return err
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if flags&linkFlagType != 0 {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if flags&linkFlagCharset != 0 {
		if err := w.WriteUint8(uint8(CharsetUTF8)); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(len(m.Name)), width); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}

	switch m.LinkType {
	case LinkTypeHard:
		return w.WriteOffset(m.ObjectAddress)
	case LinkTypeSoft:
		if len(m.SoftLinkValue) > 0xffff {
			return fmt.Errorf("soft link %q: target too long", m.Name)
		}
		if err := w.WriteUint16(uint16(len(m.SoftLinkValue))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftLinkValue))
	}
	return fmt.Errorf("link %q: cannot serialize %s link", m.Name, m.LinkType)
}

// SerializedSize returns the encoded size in bytes.
func (m *Link) SerializedSize(w *binary.Writer) int {
	flags, width := m.flags()
	size := 2 + width + len(m.Name)
	if flags&linkFlagType != 0 {
		size++
	}
	if flags&linkFlagCharset != 0 {
		size++
	}
	switch m.LinkType {
	case LinkTypeHard:
		size += w.OffsetSize()
	case LinkTypeSoft:
		size += 2 + len(m.SoftLinkValue)
	}
	return size
}

func parseLink(data []byte, r *binary.Reader) (*Link, error) {
	br := within(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("link header: %w", err)
	}
	m := &Link{Version: head[0]}
	flags := head[1]

	if flags&linkFlagType != 0 {
		t, err := br.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("link type: %w", err)
		}
		m.LinkType = LinkType(t)
	}
	if flags&linkFlagOrder != 0 {
		if m.CreationOrder, err = br.ReadUint64(); err != nil {
			return nil, fmt.Errorf("link creation order: %w", err)
		}
	}
	if flags&linkFlagCharset != 0 {
		cs, err := br.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("link charset: %w", err)
		}
		m.Charset = CharacterSet(cs)
	}
	nameLen, err := br.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, fmt.Errorf("link name length: %w", err)
	}
	name, err := br.ReadBytes(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("link name: %w", err)
	}
	m.Name = string(name)

	switch m.LinkType {
	case LinkTypeHard:
		if m.ObjectAddress, err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("link %q address: %w", m.Name, err)
		}
	case LinkTypeSoft:
		n, err := br.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("link %q target length: %w", m.Name, err)
		}
		target, err := br.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("link %q target: %w", m.Name, err)
		}
		m.SoftLinkValue = string(target)
	}
	return m, nil
}
