package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/robert-malhotra/go-nexus/internal/message"
)

// ForValue returns the datatype that stores src, a scalar or a slice/array of
// scalars. Go int and uint are stored as 64-bit.
func ForValue(src any) (*message.Datatype, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}
	v := reflect.ValueOf(src)
	t := v.Type()
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return message.NewBoolDatatype(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return message.NewFixedPointDatatype(uint32(t.Size()), true, message.OrderLE), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return message.NewFixedPointDatatype(uint32(t.Size()), false, message.OrderLE), nil
	case reflect.Float32, reflect.Float64:
		return message.NewFloatDatatype(uint32(t.Size()), message.OrderLE), nil
	case reflect.String:
		longest, charset := 0, message.CharsetASCII
		for _, s := range stringsOf(v) {
			longest = max(longest, len(s))
			if !isASCII(s) {
				charset = message.CharsetUTF8
			}
		}
		return message.NewStringDatatype(uint32(longest+1), message.PadNullTerm, charset), nil
	}
	return nil, fmt.Errorf("%w: Go type %s", ErrUnsupported, t)
}

// Encode returns the raw bytes of src under dt.
func Encode(dt *message.Datatype, src any) ([]byte, error) {
	if dt == nil {
		return nil, fmt.Errorf("%w: nil datatype", ErrUnsupported)
	}
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		s := reflect.MakeSlice(reflect.SliceOf(v.Type()), 1, 1)
		s.Index(0).Set(v)
		v = s
	}

	size := int(dt.Size)
	out := make([]byte, v.Len()*size)
	order := ByteOrder(dt)
	for i := range v.Len() {
		elem, buf := v.Index(i), out[i*size:(i+1)*size]
		switch {
		case dt.IsBool():
			if elem.Kind() != reflect.Bool {
				return nil, fmt.Errorf("cannot encode %s as bool", elem.Kind())
			}
			if elem.Bool() {
				buf[0] = 1
			}
		case dt.IsString():
			if elem.Kind() != reflect.String {
				return nil, fmt.Errorf("cannot encode %s as string", elem.Kind())
			}
			copy(buf, elem.String())
		case dt.IsFloat():
			if !elem.CanFloat() {
				return nil, fmt.Errorf("cannot encode %s as float", elem.Kind())
			}
			if size == 4 {
				order.PutUint32(buf, math.Float32bits(float32(elem.Float())))
			} else {
				order.PutUint64(buf, math.Float64bits(elem.Float()))
			}
		case dt.IsInteger():
			var bits uint64
			switch {
			case elem.CanInt():
				bits = uint64(elem.Int())
			case elem.CanUint():
				bits = elem.Uint()
			default:
				return nil, fmt.Errorf("cannot encode %s as integer", elem.Kind())
			}
			putUint(order, buf, bits)
		default:
			return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupported, dt.Class)
		}
	}
	return out, nil
}

func putUint(order binary.ByteOrder, buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	}
}

func stringsOf(v reflect.Value) []string {
	if v.Kind() == reflect.String {
		return []string{v.String()}
	}
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.Index(i).String()
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
