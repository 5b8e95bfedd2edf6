// Command nxtree prints the contents of a NeXus HDF5 file as an indented
// tree.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
)

// usageError is a command line mistake; it exits with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("nxtree", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, `
nxtree - print a NeXus file as a tree.

Usage:
  nxtree [options] FILE

Options:
`)
		fs.PrintDefaults()
	}
	paths := fs.Bool("paths", false, "List object paths in creation order instead of the tree.")
	attrs := fs.Bool("attrs", false, "List every attribute as path@name = value instead of the tree.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return &usageError{msg: "expected exactly one file"}
	}

	f, err := hdf5.Open(fs.Arg(0))
	if err != nil {
		return errors.WrapInvalid(err, "nxtree", "run", "open "+fs.Arg(0))
	}
	defer f.Close()

	switch {
	case *paths:
		return printPaths(out, f)
	case *attrs:
		return printAttrs(out, f)
	}
	return printTree(out, f)
}
