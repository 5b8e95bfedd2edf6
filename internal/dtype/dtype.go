package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-nexus/internal/message"
)

// ErrUnsupported is returned for datatypes and Go types outside the mapping.
var ErrUnsupported = errors.New("unsupported datatype")

// GoType returns the Go element type Decode produces for dt.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("%w: nil datatype", ErrUnsupported)
	}
	switch {
	case dt.IsBool():
		return reflect.TypeFor[bool](), nil
	case dt.IsString():
		return reflect.TypeFor[string](), nil
	case dt.IsFloat():
		switch dt.Size {
		case 4:
			return reflect.TypeFor[float32](), nil
		case 8:
			return reflect.TypeFor[float64](), nil
		}
	case dt.IsInteger():
		if t, ok := intTypes[intKey{dt.Size, dt.Signed}]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s of %d bytes", ErrUnsupported, dt.Class, dt.Size)
}

type intKey struct {
	size   uint32
	signed bool
}

var intTypes = map[intKey]reflect.Type{
	{1, true}:  reflect.TypeFor[int8](),
	{2, true}:  reflect.TypeFor[int16](),
	{4, true}:  reflect.TypeFor[int32](),
	{8, true}:  reflect.TypeFor[int64](),
	{1, false}: reflect.TypeFor[uint8](),
	{2, false}: reflect.TypeFor[uint16](),
	{4, false}: reflect.TypeFor[uint32](),
	{8, false}: reflect.TypeFor[uint64](),
}

// ByteOrder returns the byte order of a numeric datatype.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Name returns the NumPy-style name of dt, as shown by tree listings.
func Name(dt *message.Datatype) string {
	switch {
	case dt.IsBool():
		return "bool"
	case dt.IsString():
		return fmt.Sprintf("|S%d", dt.Size)
	case dt.IsFloat():
		return fmt.Sprintf("float%d", dt.Size*8)
	case dt.IsInteger():
		if dt.Signed {
			return fmt.Sprintf("int%d", dt.Size*8)
		}
		return fmt.Sprintf("uint%d", dt.Size*8)
	}
	return dt.Class.String()
}
