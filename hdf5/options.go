package hdf5

// FileOption configures file creation options.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		offsetSize: 8,
		lengthSize: 8,
	}
}

// WithOffsetSize sets the size in bytes for file offsets (2, 4, or 8).
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the size in bytes for lengths (2, 4, or 8).
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// DatasetOption configures dataset creation options.
type DatasetOption func(*datasetOptions)

// attrDef holds an attribute definition for creation.
type attrDef struct {
	name  string
	value any
}

type datasetOptions struct {
	shape      []uint64
	compact    bool
	compactMax int
	attributes []attrDef
}

// WithShape stores flat data under the given dimensions. The product of dims
// must equal the number of elements.
func WithShape(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.shape = dims
	}
}

// WithCompact stores the data inside the object header instead of a separate
// block. Compact data is limited to 64 KiB.
func WithCompact() DatasetOption {
	return func(o *datasetOptions) {
		o.compact = true
	}
}

// WithCompactThreshold stores the data compact when its encoded size is at
// most n bytes. Empty data is never compact.
func WithCompactThreshold(n int) DatasetOption {
	return func(o *datasetOptions) {
		o.compactMax = n
	}
}

// WithAttribute adds an attribute to the dataset.
// The value can be a scalar or slice of: bool, int, int8-64, uint, uint8-64, float32, float64, string.
// Multiple WithAttribute options can be used to add multiple attributes.
func WithAttribute(name string, value any) DatasetOption {
	return func(o *datasetOptions) {
		o.attributes = append(o.attributes, attrDef{name: name, value: value})
	}
}
