package dtype

import (
	"fmt"
	"math"
	"strings"

	"github.com/robert-malhotra/go-nexus/internal/message"
)

// Decode converts n elements of raw data under dt into a Go slice: []bool,
// []string, []float32, []float64, or the sized integer slice GoType names.
func Decode(dt *message.Datatype, data []byte, n uint64) (any, error) {
	size := uint64(dt.Size)
	if uint64(len(data)) < n*size {
		return nil, fmt.Errorf("decode: %d bytes for %d elements of %d bytes", len(data), n, size)
	}
	elem := func(i uint64) []byte { return data[i*size : (i+1)*size] }
	order := ByteOrder(dt)

	switch {
	case dt.IsBool():
		out := make([]bool, n)
		for i := range out {
			out[i] = elem(uint64(i))[0] != 0
		}
		return out, nil
	case dt.IsString():
		out := make([]string, n)
		for i := range out {
			out[i] = trimString(dt, elem(uint64(i)))
		}
		return out, nil
	case dt.IsFloat() && size == 4:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(elem(uint64(i))))
		}
		return out, nil
	case dt.IsFloat() && size == 8:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(elem(uint64(i))))
		}
		return out, nil
	case dt.IsInteger():
		return decodeInts(dt, n, elem)
	}
	return nil, fmt.Errorf("%w: %s of %d bytes", ErrUnsupported, dt.Class, dt.Size)
}

func decodeInts(dt *message.Datatype, n uint64, elem func(uint64) []byte) (any, error) {
	order := ByteOrder(dt)
	raw := func(i uint64) uint64 {
		b := elem(i)
		switch len(b) {
		case 1:
			return uint64(b[0])
		case 2:
			return uint64(order.Uint16(b))
		case 4:
			return uint64(order.Uint32(b))
		}
		return order.Uint64(b)
	}
	switch (intKey{dt.Size, dt.Signed}) {
	case intKey{1, true}:
		return fill(n, func(i uint64) int8 { return int8(raw(i)) }), nil
	case intKey{2, true}:
		return fill(n, func(i uint64) int16 { return int16(raw(i)) }), nil
	case intKey{4, true}:
		return fill(n, func(i uint64) int32 { return int32(raw(i)) }), nil
	case intKey{8, true}:
		return fill(n, func(i uint64) int64 { return int64(raw(i)) }), nil
	case intKey{1, false}:
		return fill(n, func(i uint64) uint8 { return uint8(raw(i)) }), nil
	case intKey{2, false}:
		return fill(n, func(i uint64) uint16 { return uint16(raw(i)) }), nil
	case intKey{4, false}:
		return fill(n, func(i uint64) uint32 { return uint32(raw(i)) }), nil
	case intKey{8, false}:
		return fill(n, raw), nil
	}
	return nil, fmt.Errorf("%w: integer of %d bytes", ErrUnsupported, dt.Size)
}

func fill[T any](n uint64, at func(uint64) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = at(uint64(i))
	}
	return out
}

func trimString(dt *message.Datatype, b []byte) string {
	if dt.StringPadding == message.PadSpacePad {
		return strings.TrimRight(string(b), " ")
	}
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// ToFloat64 widens any numeric slice returned by Decode.
func ToFloat64(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []float32:
		return widen(s), true
	case []int8:
		return widen(s), true
	case []int16:
		return widen(s), true
	case []int32:
		return widen(s), true
	case []int64:
		return widen(s), true
	case []uint8:
		return widen(s), true
	case []uint16:
		return widen(s), true
	case []uint32:
		return widen(s), true
	case []uint64:
		return widen(s), true
	}
	return nil, false
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
