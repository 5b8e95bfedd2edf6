// Package hdf5 reads and writes HDF5 files in pure Go.
//
// Files are written in one pass into memory: datasets store their data as
// they are created, and every object header is laid out when the file is
// finalized by [File.Bytes] or [File.Close]. Only the subset of the format a
// NeXus tree needs is produced: v3 superblock, v2 object headers with compact
// link storage, contiguous or compact datasets, hard and soft links.
package hdf5

import "errors"

// Common errors
var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrExists      = errors.New("name already exists")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is not writable")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft links followed while resolving
// one path. Cyclic links fail with ErrLinkDepth.
const MaxLinkDepth = 100
