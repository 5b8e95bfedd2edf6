package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// LayoutClass is the storage layout of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// DataLayout says where a dataset's raw data lives (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact: the data itself.
	CompactData []byte

	// Contiguous: address and byte size of the data block.
	Address uint64
	Size    uint64
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func (m *DataLayout) IsCompact() bool    { return m.Class == LayoutCompact }
func (m *DataLayout) IsContiguous() bool { return m.Class == LayoutContiguous }

// NewCompactLayout stores data inside the object header.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

// NewContiguousLayout points at size bytes at address. An empty dataset uses
// UndefinedAddress.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

// Serialize writes a version 3 layout message.
func (m *DataLayout) Serialize(w *binary.Writer) error {
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.Class)); err != nil {
		return err
	}
	switch m.Class {
	case LayoutCompact:
		if len(m.CompactData) > 0xffff {
			return fmt.Errorf("compact layout: %d bytes exceeds 65535", len(m.CompactData))
		}
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	}
	return fmt.Errorf("layout: cannot serialize class %d", m.Class)
}

// SerializedSize returns the encoded size in bytes.
func (m *DataLayout) SerializedSize(w *binary.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	}
	return 2
}

func parseDataLayout(data []byte, r *binary.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("layout: %d bytes is too short", len(data))
	}
	m := &DataLayout{Version: data[0], Class: LayoutClass(data[1])}
	if m.Version < 3 || m.Version > 4 {
		return nil, fmt.Errorf("layout: unsupported version %d", m.Version)
	}

	br := within(data, r)
	br.Skip(2)
	switch m.Class {
	case LayoutCompact:
		n, err := br.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("compact size: %w", err)
		}
		if m.CompactData, err = br.ReadBytes(int(n)); err != nil {
			return nil, fmt.Errorf("compact data: %w", err)
		}
	case LayoutContiguous:
		var err error
		if m.Address, err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("contiguous address: %w", err)
		}
		if m.Size, err = br.ReadLength(); err != nil {
			return nil, fmt.Errorf("contiguous size: %w", err)
		}
	}
	return m, nil
}
