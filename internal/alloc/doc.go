// Package alloc hands out file offsets while an HDF5 image is being written.
//
// Space is append-only: every [Allocator.Alloc] returns the current end of
// file and advances it. Each allocation may carry a tag naming the object it
// holds, which [Allocator.Validate] and [Allocator.Allocations] use when
// checking a finished image.
package alloc
