package memory

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-nexus/catalog"
)

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

var transforms = map[string]func(float64) float64{
	"sin": math.Sin,
	"cos": math.Cos,
	"abs": math.Abs,
	"exp": math.Exp,
	"log": math.Log,
}

// buildArray turns a column or array definition into an Array. The definition
// is a (possibly nested) list of values or a mapping with one of values, linspace
// or fill, plus optional dtype, shape and transform.
func buildArray(def catalog.Value) (*catalog.Array, error) {
	if list, ok := def.AsList(); ok {
		elems, shape, err := flatten(list)
		if err != nil {
			return nil, err
		}
		data, err := infer(elems)
		if err != nil {
			return nil, err
		}
		return catalog.NewArray(data, shape...)
	}

	m, ok := def.AsMap()
	if !ok {
		return nil, fmt.Errorf("expected a list or a mapping, got %s", def.Kind())
	}
	shape, err := shapeOf(m)
	if err != nil {
		return nil, err
	}

	var data any
	switch {
	case m.Has("values"):
		v, _ := m.Get("values")
		list, _ := v.AsList()
		elems, inner, err := flatten(list)
		if err != nil {
			return nil, err
		}
		if shape == nil {
			shape = inner
		}
		if data, err = infer(elems); err != nil {
			return nil, err
		}
	case m.Has("linspace"):
		v, _ := m.Get("linspace")
		data, err = linspace(v)
		if err != nil {
			return nil, err
		}
	case m.Has("fill"):
		if shape == nil {
			return nil, fmt.Errorf("fill needs a shape")
		}
		v, _ := m.Get("fill")
		if data, err = fill(v, shape); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no values, linspace or fill")
	}

	if v, ok := m.Get("transform"); ok {
		names, _ := v.Strings()
		if data, err = transform(data, names); err != nil {
			return nil, err
		}
	}
	if v, ok := m.Get("dtype"); ok {
		name, _ := v.AsString()
		if data, err = cast(data, name); err != nil {
			return nil, err
		}
	}
	return catalog.NewArray(data, shape...)
}

func shapeOf(m *catalog.Map) ([]uint64, error) {
	v, ok := m.Get("shape")
	if !ok {
		return nil, nil
	}
	dims, _ := v.AsList()
	shape := make([]uint64, len(dims))
	for i, d := range dims {
		n, ok := d.AsInt()
		if !ok || n < 0 {
			return nil, fmt.Errorf("shape dimension %d is not a non-negative integer", i)
		}
		shape[i] = uint64(n)
	}
	return shape, nil
}

// flatten walks nested lists in row-major order. Nested lists must be
// rectangular; the returned shape is nil for a flat list.
func flatten(list []catalog.Value) ([]catalog.Value, []uint64, error) {
	if len(list) == 0 || list[0].Kind() != catalog.KindList {
		for i, e := range list {
			if e.Kind() == catalog.KindList {
				return nil, nil, fmt.Errorf("element %d: ragged nesting", i)
			}
		}
		return list, nil, nil
	}

	var out []catalog.Value
	var inner []uint64
	for i, e := range list {
		sub, ok := e.AsList()
		if !ok {
			return nil, nil, fmt.Errorf("element %d: ragged nesting", i)
		}
		elems, shape, err := flatten(sub)
		if err != nil {
			return nil, nil, err
		}
		if shape == nil {
			shape = []uint64{uint64(len(sub))}
		}
		if i == 0 {
			inner = shape
		} else if !equalShape(inner, shape) {
			return nil, nil, fmt.Errorf("element %d: shape %v differs from %v", i, shape, inner)
		}
		out = append(out, elems...)
	}
	return out, append([]uint64{uint64(len(list))}, inner...), nil
}

func equalShape(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// infer picks the narrowest slice type holding every element: bool, int64,
// float64 or string.
func infer(elems []catalog.Value) (any, error) {
	if len(elems) == 0 {
		return []float64{}, nil
	}
	kind := elems[0].Kind()
	for _, e := range elems[1:] {
		switch {
		case e.Kind() == kind:
		case kind == catalog.KindInt && e.Kind() == catalog.KindFloat:
			kind = catalog.KindFloat
		case kind == catalog.KindFloat && e.Kind() == catalog.KindInt:
		default:
			return nil, fmt.Errorf("mixed %s and %s elements", kind, e.Kind())
		}
	}

	switch kind {
	case catalog.KindBool:
		out := make([]bool, len(elems))
		for i, e := range elems {
			out[i], _ = e.AsBool()
		}
		return out, nil
	case catalog.KindInt:
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i], _ = e.AsInt()
		}
		return out, nil
	case catalog.KindFloat:
		out := make([]float64, len(elems))
		for i, e := range elems {
			out[i], _ = e.Number()
		}
		return out, nil
	case catalog.KindString:
		out := make([]string, len(elems))
		for i, e := range elems {
			out[i], _ = e.AsString()
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s elements cannot form a column", kind)
}

// linspace mirrors numpy.linspace with the endpoint included.
func linspace(v catalog.Value) ([]float64, error) {
	args, _ := v.AsList()
	if len(args) != 3 {
		return nil, fmt.Errorf("linspace takes [start, stop, num]")
	}
	start, ok1 := args[0].Number()
	stop, ok2 := args[1].Number()
	num, ok3 := args[2].AsInt()
	if !ok1 || !ok2 || !ok3 || num < 0 {
		return nil, fmt.Errorf("linspace takes [start, stop, num]")
	}
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out, nil
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	if num > 1 {
		out[num-1] = stop
	}
	return out, nil
}

func fill(v catalog.Value, shape []uint64) (any, error) {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	switch v.Kind() {
	case catalog.KindBool:
		b, _ := v.AsBool()
		return repeat(b, n), nil
	case catalog.KindInt:
		i, _ := v.AsInt()
		return repeat(i, n), nil
	case catalog.KindFloat:
		f, _ := v.AsFloat()
		return repeat(f, n), nil
	case catalog.KindString:
		s, _ := v.AsString()
		return repeat(s, n), nil
	}
	return nil, fmt.Errorf("cannot fill with %s", v.Kind())
}

func repeat[T any](v T, n uint64) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func transform(data any, names []string) (any, error) {
	var xs []float64
	switch t := data.(type) {
	case []float64:
		xs = t
	case []int64:
		xs = convert[int64, float64](t)
	default:
		return nil, fmt.Errorf("transform needs numeric data, got %T", data)
	}
	for _, name := range names {
		fn, ok := transforms[name]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", name)
		}
		for i, x := range xs {
			xs[i] = fn(x)
		}
	}
	return xs, nil
}

func cast(data any, dtype string) (any, error) {
	switch t := data.(type) {
	case []float64:
		return castNumeric(t, dtype)
	case []int64:
		return castNumeric(t, dtype)
	case []bool:
		if dtype == "bool" {
			return t, nil
		}
	case []string:
		if dtype == "string" {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot cast %T to %s", data, dtype)
}

func castNumeric[S int64 | float64](src []S, dtype string) (any, error) {
	switch dtype {
	case "int8":
		return convert[S, int8](src), nil
	case "int16":
		return convert[S, int16](src), nil
	case "int32":
		return convert[S, int32](src), nil
	case "int64":
		return convert[S, int64](src), nil
	case "uint8":
		return convert[S, uint8](src), nil
	case "uint16":
		return convert[S, uint16](src), nil
	case "uint32":
		return convert[S, uint32](src), nil
	case "uint64":
		return convert[S, uint64](src), nil
	case "float32":
		return convert[S, float32](src), nil
	case "float64":
		return convert[S, float64](src), nil
	case "bool":
		out := make([]bool, len(src))
		for i, x := range src {
			out[i] = x != 0
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot cast numbers to %s", dtype)
}

func convert[S, T number](src []S) []T {
	out := make([]T, len(src))
	for i, x := range src {
		out[i] = T(x)
	}
	return out
}
