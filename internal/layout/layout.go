package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
	"github.com/robert-malhotra/go-nexus/internal/message"
)

// ErrUnsupported is returned for layouts other than compact and contiguous.
var ErrUnsupported = errors.New("unsupported storage layout")

// Layout reads all of a dataset's raw bytes.
type Layout interface {
	Read() ([]byte, error)
	Class() message.LayoutClass
}

// New returns the Layout for a dataset's layout, dataspace and datatype messages.
func New(l *message.DataLayout, ds *message.Dataspace, dt *message.Datatype, r *binary.Reader) (Layout, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: missing layout message", ErrUnsupported)
	}
	want := dataSize(ds, dt)
	switch l.Class {
	case message.LayoutCompact:
		return &Compact{data: l.CompactData, want: want}, nil
	case message.LayoutContiguous:
		size := l.Size
		if size == 0 {
			size = want
		}
		return &Contiguous{address: l.Address, size: size, reader: r}, nil
	}
	return nil, fmt.Errorf("%w: class %d", ErrUnsupported, l.Class)
}

func dataSize(ds *message.Dataspace, dt *message.Datatype) uint64 {
	if ds == nil || dt == nil {
		return 0
	}
	return ds.NumElements() * uint64(dt.Size)
}

// Compact is data stored inside the object header.
type Compact struct {
	data []byte
	want uint64
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Read returns a copy of the stored bytes.
func (c *Compact) Read() ([]byte, error) {
	if uint64(len(c.data)) < c.want {
		return nil, fmt.Errorf("compact data: %d bytes, dataspace needs %d", len(c.data), c.want)
	}
	return append([]byte(nil), c.data[:c.want]...), nil
}

// Contiguous is data stored in one block of the file.
type Contiguous struct {
	address uint64
	size    uint64
	reader  *binary.Reader
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Address returns the file address of the block.
func (c *Contiguous) Address() uint64 { return c.address }

// Size returns the block size in bytes.
func (c *Contiguous) Size() uint64 { return c.size }

// Read returns the block, or zeros when it was never allocated.
func (c *Contiguous) Read() ([]byte, error) {
	if c.address == message.UndefinedAddress || c.reader.IsUndefinedOffset(c.address) {
		return make([]byte, c.size), nil
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.reader.At(int64(c.address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("contiguous data at %d: %w", c.address, err)
	}
	return data, nil
}
