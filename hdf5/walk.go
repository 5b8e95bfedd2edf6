package hdf5

import "errors"

// WalkFunc is called for each object during traversal.
// path is the full path to the object.
// obj is either *Group or *Dataset.
// err is any error encountered opening the object.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj any, err error) error

// Walk traverses the groups and datasets reachable from g through hard links,
// in link creation order. Soft links are not followed, so every object is
// visited once. The callback sees g itself first.
func Walk(g *Group, fn WalkFunc) error {
	err := walkGroup(g, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	for _, m := range g.members {
		if m.soft {
			continue
		}
		childPath := JoinPath(g.Path(), m.name)
		obj, err := g.resolve(m, 0)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			if err := walkGroup(o, fn); err != nil {
				return err
			}
		case *Dataset:
			if err := fn(childPath, o, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// AttrInfo contains information about an attribute during walking.
type AttrInfo struct {
	// Path is the full attribute path (e.g., "/entry/data@signal")
	Path string

	// ObjectPath is the path to the object containing this attribute
	ObjectPath string

	// ObjectType is "group" or "dataset"
	ObjectType string

	Name string
	Attr *Attribute

	// Value contains the auto-read attribute value (nil on read error)
	Value any

	// Err contains any error from reading the attribute value
	Err error
}

// WalkAttrsFunc is the callback function type for WalkAttrs.
// Return nil to continue walking, or an error to stop.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs visits every attribute of every object Walk reaches.
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	if f.closed {
		return ErrClosed
	}
	return Walk(f.root, func(path string, obj any, err error) error {
		if err != nil {
			return nil
		}
		var (
			kind  string
			names []string
			get   func(string) *Attribute
		)
		switch o := obj.(type) {
		case *Group:
			kind, names, get = "group", o.Attrs(), o.Attr
		case *Dataset:
			kind, names, get = "dataset", o.Attrs(), o.Attr
		}
		for _, name := range names {
			attr := get(name)
			info := AttrInfo{
				Path:       JoinAttrPath(path, name),
				ObjectPath: path,
				ObjectType: kind,
				Name:       name,
				Attr:       attr,
			}
			info.Value, info.Err = attr.Value()
			if err := fn(info); err != nil {
				return err
			}
		}
		return nil
	})
}

// ErrStopWalk can be returned from a walk callback to stop walking without an error.
var ErrStopWalk = errors.New("walk stopped")
