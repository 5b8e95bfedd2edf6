package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// Attribute is a small named value attached to an object (type 0x000C).
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// NewAttribute returns a version 3 attribute.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	return &Attribute{Version: 3, Name: name, Datatype: dt, Dataspace: ds, Data: data}
}

// NewScalarAttribute returns a version 3 attribute with a scalar dataspace.
func NewScalarAttribute(name string, dt *Datatype, data []byte) *Attribute {
	return NewAttribute(name, dt, NewScalarDataspace(), data)
}

// Serialize writes a version 3 attribute.
func (m *Attribute) Serialize(w *binary.Writer) error {
	cs := CharsetASCII
	if !isASCII(m.Name) {
		cs = CharsetUTF8
	}
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	for _, s := range []int{len(m.Name) + 1, m.Datatype.SerializedSize(w), m.Dataspace.SerializedSize(w)} {
		if s > 0xffff {
			return fmt.Errorf("attribute %q: header field of %d bytes", m.Name, s)
		}
		if err := w.WriteUint16(uint16(s)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(uint8(cs)); err != nil {
		return err
	}
	if err := w.WriteBytes(append([]byte(m.Name), 0)); err != nil {
		return err
	}
	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

// SerializedSize returns the encoded size in bytes.
func (m *Attribute) SerializedSize(w *binary.Writer) int {
	return 9 + len(m.Name) + 1 + m.Datatype.SerializedSize(w) + m.Dataspace.SerializedSize(w) + len(m.Data)
}

func parseAttribute(data []byte, r *binary.Reader) (*Attribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("attribute: %d bytes is too short", len(data))
	}
	m := &Attribute{Version: data[0]}
	br := within(data, r)
	br.Skip(2)
	nameSize, _ := br.ReadUint16()
	dtSize, _ := br.ReadUint16()
	dsSize, _ := br.ReadUint16()

	// Version 1 pads each part to eight bytes; version 3 adds an encoding byte.
	pad := func(n uint16) int { return int(n) }
	switch m.Version {
	case 1:
		pad = func(n uint16) int { return (int(n) + 7) &^ 7 }
	case 2:
	case 3:
		br.Skip(1)
	default:
		return nil, fmt.Errorf("attribute: unsupported version %d", m.Version)
	}

	name, err := br.ReadBytes(pad(nameSize))
	if err != nil {
		return nil, fmt.Errorf("attribute name: %w", err)
	}
	m.Name = cstring(name)

	dtBytes, err := br.ReadBytes(pad(dtSize))
	if err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", m.Name, err)
	}
	if m.Datatype, err = parseDatatype(dtBytes[:dtSize], r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}

	dsBytes, err := br.ReadBytes(pad(dsSize))
	if err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", m.Name, err)
	}
	if m.Dataspace, err = parseDataspace(dsBytes[:dsSize], r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}

	if rest := len(data) - int(br.Pos()); rest > 0 {
		m.Data, _ = br.ReadBytes(rest)
	}
	return m, nil
}

// cstring returns b up to its first NUL.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
