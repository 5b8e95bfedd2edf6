package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// DataspaceType is the shape class of a dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace describes the shape of a dataset or attribute (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// IsScalar reports whether the dataspace holds exactly one element and has no dimensions.
func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }

// NumElements returns the product of the dimensions.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// NewDataspace returns a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceSimple, Dimensions: dims, MaxDims: maxDims}
}

// NewScalarDataspace returns a rank-0 dataspace holding one element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 0x01
	}
	for _, b := range []uint8{2, uint8(m.Rank()), flags, uint8(m.SpaceType)} {
		if err := w.WriteUint8(b); err != nil {
			return err
		}
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the encoded size in bytes.
func (m *Dataspace) SerializedSize(w *binary.Writer) int {
	return 4 + (len(m.Dimensions)+len(m.MaxDims))*w.LengthSize()
}

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dataspace: %d bytes is too short", len(data))
	}
	ds := &Dataspace{Version: data[0]}
	rank := int(data[1])
	hasMax := data[2]&0x01 != 0

	br := within(data, r)
	switch ds.Version {
	case 1:
		// Version 1 has no type byte and four reserved bytes.
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
		br.Skip(8)
	case 2:
		ds.SpaceType = DataspaceType(data[3])
		br.Skip(4)
	default:
		return nil, fmt.Errorf("dataspace: unsupported version %d", ds.Version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	read := func() ([]uint64, error) {
		dims := make([]uint64, rank)
		for i := range dims {
			v, err := br.ReadLength()
			if err != nil {
				return nil, fmt.Errorf("dataspace: dimension %d: %w", i, err)
			}
			dims[i] = v
		}
		return dims, nil
	}
	var err error
	if ds.Dimensions, err = read(); err != nil {
		return nil, err
	}
	if hasMax {
		if ds.MaxDims, err = read(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
