package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-nexus/internal/dtype"
	"github.com/robert-malhotra/go-nexus/internal/message"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
type Attribute struct {
	msg *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the attribute value.
func (a *Attribute) Shape() []uint64 {
	if a.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar returns true if the attribute is a scalar value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// DtypeName returns the NumPy-style name of the element type.
func (a *Attribute) DtypeName() string {
	if a.msg.Datatype == nil {
		return ""
	}
	return dtype.Name(a.msg.Datatype)
}

// Value reads the attribute and returns an auto-typed Go value: a single
// element for a scalar attribute, otherwise a typed slice.
func (a *Attribute) Value() (any, error) {
	if a.msg.Datatype == nil {
		return nil, fmt.Errorf("attribute %s has no datatype", a.msg.Name)
	}
	v, err := dtype.Decode(a.msg.Datatype, a.msg.Data, a.NumElements())
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.msg.Name, err)
	}
	return unwrapScalar(v, a.IsScalar()), nil
}

// ReadString reads a scalar string attribute.
func (a *Attribute) ReadString() (string, error) {
	v, err := a.Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: attribute %s is %s, not a scalar string", ErrUnsupported, a.msg.Name, a.DtypeName())
	}
	return s, nil
}

// ReadFloat64 reads a numeric attribute as float64 values.
func (a *Attribute) ReadFloat64() ([]float64, error) {
	v, err := dtype.Decode(a.msg.Datatype, a.msg.Data, a.NumElements())
	if err != nil {
		return nil, err
	}
	f, ok := dtype.ToFloat64(v)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %s is %s, not numeric", ErrUnsupported, a.msg.Name, a.DtypeName())
	}
	return f, nil
}

// newAttributeMessage encodes value as a scalar or one-dimensional attribute.
func newAttributeMessage(name string, value any) (*message.Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	datatype, err := dtype.ForValue(value)
	if err != nil {
		return nil, err
	}
	data, err := dtype.Encode(datatype, value)
	if err != nil {
		return nil, fmt.Errorf("encoding attribute value: %w", err)
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		n := uint64(len(data)) / uint64(datatype.Size)
		return message.NewAttribute(name, datatype, message.NewDataspace([]uint64{n}, nil), data), nil
	}
	return message.NewScalarAttribute(name, datatype, data), nil
}

// setAttr replaces the attribute called name in place, or appends it.
func setAttr(attrs []*message.Attribute, name string, value any) ([]*message.Attribute, error) {
	msg, err := newAttributeMessage(name, value)
	if err != nil {
		return attrs, err
	}
	for i, a := range attrs {
		if a.Name == name {
			attrs[i] = msg
			return attrs, nil
		}
	}
	return append(attrs, msg), nil
}

func findAttr(attrs []*message.Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return &Attribute{msg: a}
		}
	}
	return nil
}

func attrNames(attrs []*message.Attribute) []string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return names
}
