package hdf5

import (
	"fmt"
	"path"
	"reflect"

	"github.com/robert-malhotra/go-nexus/internal/dtype"
	"github.com/robert-malhotra/go-nexus/internal/layout"
	"github.com/robert-malhotra/go-nexus/internal/message"
	"github.com/robert-malhotra/go-nexus/internal/object"
)

// maxCompactSize is the largest payload a compact layout message can hold.
const maxCompactSize = 0xffff

// Dataset represents an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	dataspace *message.Dataspace
	datatype  *message.Datatype
	storage   *message.DataLayout
	layout    layout.Layout
	attrs     []*message.Attribute
	addr      uint64
}

// newDataset creates a Dataset from an object header.
func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:      f,
		path:      path,
		dataspace: header.Dataspace(),
		datatype:  header.Datatype(),
		storage:   header.DataLayout(),
		attrs:     header.Attributes(),
		addr:      header.Address,
	}
	if ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s: missing dataspace message", path)
	}
	if ds.datatype == nil {
		return nil, fmt.Errorf("dataset %s: missing datatype message", path)
	}
	var err error
	ds.layout, err = layout.New(ds.storage, ds.dataspace, ds.datatype, f.reader)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// CreateDataset creates a dataset holding data, a scalar or a slice of
// scalars. A scalar is stored with a scalar dataspace, a slice as one
// dimension unless WithShape says otherwise.
func (g *Group) CreateDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	if err := g.checkCreate(name); err != nil {
		return nil, err
	}
	options := &datasetOptions{}
	for _, opt := range opts {
		opt(options)
	}
	dsPath := JoinPath(g.path, name)

	datatype, err := dtype.ForValue(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", dsPath, err)
	}
	raw, err := dtype.Encode(datatype, data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: encoding data: %w", dsPath, err)
	}
	dataspace, err := dataspaceFor(data, uint64(len(raw))/uint64(datatype.Size), options.shape)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", dsPath, err)
	}

	var storage *message.DataLayout
	switch {
	case options.compact || (len(raw) > 0 && len(raw) <= min(options.compactMax, maxCompactSize)):
		if len(raw) > maxCompactSize {
			return nil, fmt.Errorf("dataset %s: %w: %d bytes is too large for compact storage", dsPath, ErrUnsupported, len(raw))
		}
		storage = message.NewCompactLayout(raw)
	case len(raw) == 0:
		storage = message.NewContiguousLayout(message.UndefinedAddress, 0)
	default:
		addr := g.file.allocator.AllocTagged(uint64(len(raw)), dsPath)
		if err := g.file.writer.At(int64(addr)).WriteBytes(raw); err != nil {
			return nil, fmt.Errorf("dataset %s: writing data: %w", dsPath, err)
		}
		storage = message.NewContiguousLayout(addr, uint64(len(raw)))
	}

	ds := &Dataset{
		file:      g.file,
		path:      dsPath,
		dataspace: dataspace,
		datatype:  datatype,
		storage:   storage,
	}
	if ds.layout, err = layout.New(storage, dataspace, datatype, g.file.reader); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", dsPath, err)
	}
	for _, a := range options.attributes {
		if ds.attrs, err = setAttr(ds.attrs, a.name, a.value); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", JoinAttrPath(dsPath, a.name), err)
		}
	}
	g.members = append(g.members, &member{name: name, dataset: ds})
	return ds, nil
}

// Storable reports whether CreateDataset accepts data's element type.
func Storable(data any) error {
	if _, err := dtype.ForValue(data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return nil
}

// dataspaceFor picks a scalar dataspace for scalar data, otherwise shape or
// a single dimension of n elements.
func dataspaceFor(data any, n uint64, shape []uint64) (*message.Dataspace, error) {
	if shape != nil {
		total := uint64(1)
		for _, d := range shape {
			total *= d
		}
		if total != n {
			return nil, fmt.Errorf("shape %v holds %d elements, data has %d", shape, total, n)
		}
		return message.NewDataspace(shape, nil), nil
	}
	switch reflect.ValueOf(data).Kind() {
	case reflect.Slice, reflect.Array:
		return message.NewDataspace([]uint64{n}, nil), nil
	}
	return message.NewScalarDataspace(), nil
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string {
	return path.Base(d.path)
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions of the dataset, nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return d.dataspace.Dimensions
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return d.dataspace.Rank()
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// IsScalar returns true if the dataset is a scalar (single value).
func (d *Dataset) IsScalar() bool {
	return d.dataspace.IsScalar()
}

// IsCompact reports whether the data is stored inside the object header.
func (d *Dataset) IsCompact() bool {
	return d.storage != nil && d.storage.IsCompact()
}

// DtypeName returns the NumPy-style name of the element type, e.g. "float64" or "|S12".
func (d *Dataset) DtypeName() string {
	return dtype.Name(d.datatype)
}

// GoType returns the Go element type the dataset decodes to.
func (d *Dataset) GoType() (reflect.Type, error) {
	return dtype.GoType(d.datatype)
}

// ReadRaw reads all data from the dataset as raw bytes.
func (d *Dataset) ReadRaw() ([]byte, error) {
	return d.layout.Read()
}

// Read decodes every element into a typed slice such as []float64 or []string.
func (d *Dataset) Read() (any, error) {
	raw, err := d.layout.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return dtype.Decode(d.datatype, raw, d.dataspace.NumElements())
}

// Value reads the dataset, returning a single element for a scalar dataset.
func (d *Dataset) Value() (any, error) {
	v, err := d.Read()
	if err != nil {
		return nil, err
	}
	return unwrapScalar(v, d.IsScalar()), nil
}

// ReadFloat64 reads any numeric dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	v, err := d.Read()
	if err != nil {
		return nil, err
	}
	f, ok := dtype.ToFloat64(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not numeric", ErrUnsupported, d.path, d.DtypeName())
	}
	return f, nil
}

// ReadString reads the dataset as string values.
func (d *Dataset) ReadString() ([]string, error) {
	v, err := d.Read()
	if err != nil {
		return nil, err
	}
	s, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not a string", ErrUnsupported, d.path, d.DtypeName())
	}
	return s, nil
}

// Attrs returns the attribute names for this dataset.
func (d *Dataset) Attrs() []string {
	return attrNames(d.attrs)
}

// Attr returns an attribute by name, or nil if not found.
func (d *Dataset) Attr(name string) *Attribute {
	return findAttr(d.attrs, name)
}

// HasAttr returns true if the dataset has an attribute with the given name.
func (d *Dataset) HasAttr(name string) bool {
	return d.Attr(name) != nil
}

// SetAttr adds or replaces an attribute on the dataset.
func (d *Dataset) SetAttr(name string, value any) error {
	if err := d.file.checkWritable(); err != nil {
		return err
	}
	attrs, err := setAttr(d.attrs, name, value)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", JoinAttrPath(d.path, name), err)
	}
	d.attrs = attrs
	return nil
}

func unwrapScalar(v any, scalar bool) any {
	rv := reflect.ValueOf(v)
	if scalar && rv.Kind() == reflect.Slice && rv.Len() == 1 {
		return rv.Index(0).Interface()
	}
	return v
}
