package catalog

import (
	"fmt"
	"reflect"
)

// Array is an N-dimensional array stored as a flat, row-major typed slice.
type Array struct {
	// Data is a slice of bool, a fixed-width integer, a float or string.
	Data any
	// Shape lists the dimensions. A nil Shape means one dimension of Len().
	Shape []uint64
}

// NewArray returns an array over data with the given shape.
func NewArray(data any, shape ...uint64) (*Array, error) {
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("catalog: array data must be a slice, got %T", data)
	}
	a := &Array{Data: data, Shape: shape}
	if len(shape) > 0 {
		total := uint64(1)
		for _, d := range shape {
			total *= d
		}
		if total != uint64(rv.Len()) {
			return nil, fmt.Errorf("catalog: shape %v holds %d elements, data has %d", shape, total, rv.Len())
		}
	}
	return a, nil
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil || a.Data == nil {
		return 0
	}
	return reflect.ValueOf(a.Data).Len()
}

// Dims returns the shape, defaulting to a single dimension.
func (a *Array) Dims() []uint64 {
	if len(a.Shape) > 0 {
		return a.Shape
	}
	return []uint64{uint64(a.Len())}
}

// ElemKind returns the Go kind of the elements.
func (a *Array) ElemKind() reflect.Kind {
	if a == nil || a.Data == nil {
		return reflect.Invalid
	}
	return reflect.TypeOf(a.Data).Elem().Kind()
}
