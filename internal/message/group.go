package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// LinkInfo marks a group that stores its links as Link messages (type 0x0002).
// A defined FractalHeapAddr means the group uses dense storage instead.
type LinkInfo struct {
	Version                uint8
	Flags                  uint8
	MaxCreationIndex       uint64
	FractalHeapAddr        uint64
	NameIndexBTreeAddr     uint64
	CreationOrderBTreeAddr uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// IsDense reports whether the links live in a fractal heap.
func (m *LinkInfo) IsDense() bool { return m.FractalHeapAddr != UndefinedAddress }

// NewLinkInfo returns link info for compact link storage.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{FractalHeapAddr: UndefinedAddress, NameIndexBTreeAddr: UndefinedAddress}
}

// Serialize writes the message. The heap and name index addresses are always
// present, undefined for compact groups.
func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(m.Version); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreationIndex); err != nil {
			return err
		}
	}
	if err := w.WriteOffset(m.FractalHeapAddr); err != nil {
		return err
	}
	if err := w.WriteOffset(m.NameIndexBTreeAddr); err != nil {
		return err
	}
	if m.Flags&0x02 != 0 {
		return w.WriteOffset(m.CreationOrderBTreeAddr)
	}
	return nil
}

// SerializedSize returns the encoded size in bytes.
func (m *LinkInfo) SerializedSize(w *binary.Writer) int {
	size := 2 + 2*w.OffsetSize()
	if m.Flags&0x01 != 0 {
		size += 8
	}
	if m.Flags&0x02 != 0 {
		size += w.OffsetSize()
	}
	return size
}

func parseLinkInfo(data []byte, r *binary.Reader) (*LinkInfo, error) {
	br := within(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("link info header: %w", err)
	}
	m := &LinkInfo{Version: head[0], Flags: head[1], CreationOrderBTreeAddr: UndefinedAddress}
	if m.Flags&0x01 != 0 {
		if m.MaxCreationIndex, err = br.ReadUint64(); err != nil {
			return nil, fmt.Errorf("link info creation index: %w", err)
		}
	}
	if m.FractalHeapAddr, err = br.ReadOffset(); err != nil {
		return nil, fmt.Errorf("link info heap: %w", err)
	}
	if m.NameIndexBTreeAddr, err = br.ReadOffset(); err != nil {
		return nil, fmt.Errorf("link info name index: %w", err)
	}
	if m.Flags&0x02 != 0 {
		if m.CreationOrderBTreeAddr, err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("link info order index: %w", err)
		}
	}
	if br.IsUndefinedOffset(m.FractalHeapAddr) {
		m.FractalHeapAddr = UndefinedAddress
	}
	return m, nil
}

// GroupInfo carries the link storage thresholds of a group (type 0x000A).
type GroupInfo struct {
	Version         uint8
	Flags           uint8
	MaxCompactLinks uint16
	MinDenseLinks   uint16
	EstNumEntries   uint16
	EstLinkNameLen  uint16
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// NewGroupInfo returns group info whose compact limit admits n links.
// Below the library default of 8 the defaults are left implicit.
func NewGroupInfo(n int) *GroupInfo {
	if n <= 8 {
		return &GroupInfo{}
	}
	if n > 0xffff {
		n = 0xffff
	}
	return &GroupInfo{Flags: 0x01, MaxCompactLinks: uint16(n), MinDenseLinks: 6}
}

// Serialize writes the message.
func (m *GroupInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(m.Version); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint16(m.MaxCompactLinks); err != nil {
			return err
		}
		if err := w.WriteUint16(m.MinDenseLinks); err != nil {
			return err
		}
	}
	if m.Flags&0x02 != 0 {
		if err := w.WriteUint16(m.EstNumEntries); err != nil {
			return err
		}
		return w.WriteUint16(m.EstLinkNameLen)
	}
	return nil
}

// SerializedSize returns the encoded size in bytes.
func (m *GroupInfo) SerializedSize(w *binary.Writer) int {
	size := 2
	if m.Flags&0x01 != 0 {
		size += 4
	}
	if m.Flags&0x02 != 0 {
		size += 4
	}
	return size
}
