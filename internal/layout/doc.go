// Package layout reads the raw bytes of a dataset from its storage layout.
//
// Compact datasets keep their bytes in the layout message; contiguous
// datasets point at a single block. An unallocated contiguous block reads as
// zero-filled data of the dataspace's size, which is what HDF5 returns for a
// dataset that was created but never written. Chunked storage is rejected
// with [ErrUnsupported].
package layout
