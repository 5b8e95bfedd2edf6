package hdf5

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-nexus/internal/alloc"
	"github.com/robert-malhotra/go-nexus/internal/binary"
	"github.com/robert-malhotra/go-nexus/internal/object"
	"github.com/robert-malhotra/go-nexus/internal/superblock"
)

// File is an HDF5 file open for reading, or being built for writing.
type File struct {
	path       string
	osFile     *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	// Write support fields
	writable  bool
	buf       *binary.Buffer
	writer    *binary.Writer
	allocator *alloc.Allocator
	image     []byte
}

// NewFile starts an empty in-memory file with a v3 superblock.
func NewFile(opts ...FileOption) *File {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	sb := superblock.NewSuperblock()
	sb.OffsetSize = uint8(options.offsetSize)
	sb.LengthSize = uint8(options.lengthSize)

	buf := binary.NewBuffer(4096)
	cfg := sb.ReaderConfig()
	f := &File{
		superblock: sb,
		reader:     binary.NewReader(buf, cfg),
		writable:   true,
		buf:        buf,
		writer:     binary.NewWriter(buf, cfg),
		allocator:  alloc.New(uint64(sb.Size())),
	}
	f.root = newWriteGroup(f, "/")
	return f
}

// Create starts a file that is written to path when closed.
func Create(path string, opts ...FileOption) (*File, error) {
	// Fail early on an unwritable destination.
	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	f := NewFile(opts...)
	f.path = path
	return f, nil
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f, err := open(osFile)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	f.path = path
	f.osFile = osFile
	return f, nil
}

// OpenBytes reads a file held in memory, such as the output of [File.Bytes].
func OpenBytes(data []byte) (*File, error) {
	return open(bytes.NewReader(data))
}

// OpenReader reads a file from r. size bounds the readable region.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	return open(io.NewSectionReader(r, 0, size))
}

func open(src io.ReaderAt) (*File, error) {
	sb, err := superblock.Read(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotHDF5, err)
	}
	f := &File{
		reader:     binary.NewReader(src, sb.ReaderConfig()),
		superblock: sb,
	}
	root, err := f.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	f.root = root
	return f, nil
}

// Close finalizes a file created with Create and writes it to disk. For a
// file opened for reading it releases the underlying handle.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	if f.writable && f.path != "" {
		data, err := f.Bytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.path, data, 0o644); err != nil {
			return err
		}
	}
	f.closed = true
	if f.osFile != nil {
		return f.osFile.Close()
	}
	return nil
}

// Root returns the root group of the file.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path, empty for in-memory files.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// IsWritable reports whether objects can still be added.
func (f *File) IsWritable() bool {
	return f.writable && f.image == nil && !f.closed
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// GetAttr returns an attribute by path.
// Path format: /group/object@attribute_name
//
// Examples:
//   - "/@default" - attribute on the root group
//   - "/entry/data/I0@target" - attribute on a dataset
func (f *File) GetAttr(path string) (*Attribute, error) {
	if f.closed {
		return nil, ErrClosed
	}
	objectPath, attrName, err := ParseAttrPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := f.root.open(objectPath, 0)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", objectPath, err)
	}
	var attr *Attribute
	switch o := obj.(type) {
	case *Group:
		attr = o.Attr(attrName)
	case *Dataset:
		attr = o.Attr(attrName)
	}
	if attr == nil {
		return nil, fmt.Errorf("%w: attribute %s", ErrNotFound, path)
	}
	return attr, nil
}

// ReadAttr reads an attribute value by path.
// This is a convenience method that combines GetAttr and Attribute.Value().
func (f *File) ReadAttr(path string) (any, error) {
	attr, err := f.GetAttr(path)
	if err != nil {
		return nil, err
	}
	return attr.Value()
}

// AllocStats returns allocation statistics of a file being written.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// openGroupAt opens a group at the given address.
func (f *File) openGroupAt(address uint64, path string) (*Group, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if !header.IsGroup() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, path)
	}
	return newReadGroup(f, path, header), nil
}

// openAt opens the group or dataset whose header is at address.
func (f *File) openAt(address uint64, path string) (any, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	switch {
	case header.IsDataset():
		return newDataset(f, path, header)
	case header.IsGroup():
		return newReadGroup(f, path, header), nil
	}
	return nil, fmt.Errorf("%w: object at %s is neither group nor dataset", ErrUnsupported, path)
}
