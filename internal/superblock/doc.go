// Package superblock reads and writes the version 2 and 3 HDF5 superblock,
// the checksummed record at the head of a file that gives the address and
// length sizes, the end-of-file address and the root group's object header.
//
// [Read] searches for the signature at offsets 0, 512, 1024 and 2048, the
// places a user block may push it to. Version 0 and 1 superblocks, which
// describe the root group through a symbol table, are rejected with
// [ErrUnsupportedVersion].
package superblock
