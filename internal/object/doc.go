// Package object reads and writes version 2 ("OHDR") HDF5 object headers.
//
// Every group and dataset is an object header holding a list of messages
// (see package message). Headers written here are a single checksummed
// chunk; the reader also follows "OCHK" continuation blocks written by other
// libraries.
//
//	hdr, err := object.Read(reader, addr)
//	links := hdr.GetMessages(message.TypeLink)
//
// Version 1 headers, used by files with a version 0 or 1 superblock, are
// rejected with [ErrUnsupportedVersion].
package object
