// Package dtype maps between Go values and HDF5 element encodings.
//
//	HDF5 datatype          | Go type
//	-----------------------|---------------------------------
//	fixed-point            | int8..int64, uint8..uint64
//	floating-point         | float32, float64
//	fixed-length string    | string
//	FALSE/TRUE enum        | bool
//
// [ForValue] picks a datatype for a Go slice or scalar, [Encode] turns the
// value into raw bytes and [Decode] reverses it, returning the natural Go
// slice type for the datatype. Strings are stored fixed-length and
// null-terminated, sized to the longest element; UTF-8 is flagged when any
// element needs it.
package dtype
