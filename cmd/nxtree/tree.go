package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/internal/pyrepr"
)

const (
	// maxPrinted is the largest dataset printed element by element.
	maxPrinted = 10
	// String values are cut to these many characters.
	attrLimit    = 46
	datasetLimit = 56
	maxDepth     = 64
)

// printer writes a NeXus tree listing: groups as name:NXclass, links as
// name -> target and datasets as name = value, each followed by its
// attributes. Names are sorted.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s"+format+"\n", append([]any{strings.Repeat("  ", depth)}, args...)...)
}

// printTree writes the listing of f to w.
func printTree(w io.Writer, f *hdf5.File) error {
	p := &printer{w: w}
	if err := p.group(f.Root(), "root", 0); err != nil {
		return err
	}
	return p.err
}

func (p *printer) group(g *hdf5.Group, name string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%s: nested deeper than %d groups", g.Path(), maxDepth)
	}
	if class, err := classOf(g); err == nil && class != "" {
		name += ":" + class
	}
	p.line(depth, "%s", name)
	p.attrs(depth+1, g.Attrs(), g.Attr)

	links := g.Links()
	slices.SortFunc(links, func(a, b hdf5.LinkInfo) int { return strings.Compare(a.Name, b.Name) })
	for _, l := range links {
		if l.Kind == hdf5.LinkSoft {
			p.line(depth+1, "%s -> %s", l.Name, l.Target)
			continue
		}
		sub, err := g.OpenGroup(l.Name)
		if err == nil {
			if err := p.group(sub, l.Name, depth+1); err != nil {
				return err
			}
			continue
		}
		if !errors.Is(err, hdf5.ErrNotGroup) {
			return err
		}
		ds, err := g.OpenDataset(l.Name)
		if err != nil {
			return err
		}
		p.line(depth+1, "%s = %s", l.Name, datasetValue(ds))
		p.attrs(depth+2, ds.Attrs(), ds.Attr)
	}
	return nil
}

func classOf(g *hdf5.Group) (string, error) {
	a := g.Attr("NX_class")
	if a == nil {
		return "", nil
	}
	return a.ReadString()
}

// attrs writes every attribute but NX_class, sorted by name.
func (p *printer) attrs(depth int, names []string, get func(string) *hdf5.Attribute) {
	names = slices.Clone(names)
	slices.Sort(names)
	for _, name := range names {
		if name == "NX_class" {
			continue
		}
		p.line(depth, "@%s = %s", name, attrValue(get(name)))
	}
}

func attrValue(a *hdf5.Attribute) string {
	if !a.IsScalar() && a.NumElements() > maxPrinted {
		return summary(a.DtypeName(), a.Shape())
	}
	v, err := a.Value()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return format(v, attrLimit)
}

func datasetValue(ds *hdf5.Dataset) string {
	if !ds.IsScalar() && (ds.Rank() > 1 || ds.NumElements() > maxPrinted) {
		return summary(ds.DtypeName(), ds.Shape())
	}
	v, err := ds.Value()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return format(v, datasetLimit)
}

// summary renders a dataset too large to print as dtype(NxM).
func summary(dtype string, shape []uint64) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.FormatUint(d, 10)
	}
	return dtype + "(" + strings.Join(dims, "x") + ")"
}

// format renders a decoded value as NumPy prints it. Strings longer than
// limit are cut.
func format(v any, limit int) string {
	switch x := v.(type) {
	case string:
		return pyrepr.Quote(x, limit)
	case bool:
		return pyrepr.Bool(x)
	case float64:
		return pyrepr.Float(x)
	case float32:
		return pyrepr.Float(float64(x))
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case []float64:
		return pyrepr.FloatArray(x)
	case []float32:
		fs := make([]float64, len(x))
		for i, f := range x {
			fs[i] = float64(f)
		}
		return pyrepr.FloatArray(fs)
	case []bool:
		return pyrepr.Array(mapEach(x, pyrepr.Bool))
	case []string:
		return pyrepr.Array(mapEach(x, func(s string) string { return pyrepr.Quote(s, limit) }))
	case []int8:
		return pyrepr.Array(mapEach(x, itoa))
	case []int16:
		return pyrepr.Array(mapEach(x, itoa))
	case []int32:
		return pyrepr.Array(mapEach(x, itoa))
	case []int64:
		return pyrepr.Array(mapEach(x, itoa))
	case []uint8:
		return pyrepr.Array(mapEach(x, itoa))
	case []uint16:
		return pyrepr.Array(mapEach(x, itoa))
	case []uint32:
		return pyrepr.Array(mapEach(x, itoa))
	case []uint64:
		return pyrepr.Array(mapEach(x, itoa))
	}
	return fmt.Sprint(v)
}

func itoa[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64](n T) string {
	return fmt.Sprint(n)
}

func mapEach[T any](xs []T, fn func(T) string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fn(x)
	}
	return out
}

// printPaths writes every object path in creation order, one per line,
// groups marked with a trailing slash.
func printPaths(w io.Writer, f *hdf5.File) error {
	return hdf5.Walk(f.Root(), func(path string, obj any, err error) error {
		if err != nil {
			_, werr := fmt.Fprintf(w, "%s: %v\n", path, err)
			return werr
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			if path != "/" {
				path += "/"
			}
			_, err = fmt.Fprintln(w, path)
		case *hdf5.Dataset:
			_, err = fmt.Fprintf(w, "%s %s\n", path, summary(o.DtypeName(), o.Shape()))
		}
		return err
	})
}

// printAttrs writes every attribute as path@name = value.
func printAttrs(w io.Writer, f *hdf5.File) error {
	return f.WalkAttrs(func(info hdf5.AttrInfo) error {
		value := "<" + fmt.Sprint(info.Err) + ">"
		if info.Err == nil {
			value = format(info.Value, 0)
		}
		_, err := fmt.Fprintf(w, "%s = %s\n", info.Path, value)
		return err
	})
}
