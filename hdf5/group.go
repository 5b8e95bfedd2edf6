package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-nexus/internal/message"
	"github.com/robert-malhotra/go-nexus/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	file    *File
	path    string
	members []*member
	attrs   []*message.Attribute

	// addr is the header address, known once the group has been read or
	// written.
	addr uint64
}

// member is one named link held by a group. A freshly written group holds
// its children directly; a group read from disk holds hard-link addresses
// until a child is opened.
type member struct {
	name    string
	soft    bool
	target  string
	addr    uint64
	group   *Group
	dataset *Dataset
}

// LinkKind tells hard links from soft links.
type LinkKind int

const (
	LinkHard LinkKind = iota
	LinkSoft
)

func (k LinkKind) String() string {
	if k == LinkSoft {
		return "soft"
	}
	return "hard"
}

// LinkInfo describes one link of a group. Target is set for soft links.
type LinkInfo struct {
	Name   string
	Kind   LinkKind
	Target string
}

func newWriteGroup(f *File, path string) *Group {
	return &Group{file: f, path: path}
}

func newReadGroup(f *File, path string, header *object.Header) *Group {
	g := &Group{file: f, path: path, attrs: header.Attributes(), addr: header.Address}
	for _, l := range header.Links() {
		m := &member{name: l.Name, addr: l.ObjectAddress}
		if l.IsSoft() {
			m.soft, m.target = true, l.SoftLinkValue
		}
		g.members = append(g.members, m)
	}
	return g
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// File returns the file holding the group.
func (g *Group) File() *File {
	return g.file
}

// OpenGroup opens a group by path, relative to g unless it starts with "/".
func (g *Group) OpenGroup(p string) (*Group, error) {
	obj, err := g.open(p, 0)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
	}
	return group, nil
}

// OpenDataset opens a dataset by path, relative to g unless it starts with "/".
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	obj, err := g.open(p, 0)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, p)
	}
	return ds, nil
}

// Contains reports whether g has a link called name, without resolving it.
func (g *Group) Contains(name string) bool {
	return g.member(name) != nil
}

// Exists reports whether p resolves to an object, following soft links.
func (g *Group) Exists(p string) bool {
	_, err := g.open(p, 0)
	return err == nil
}

// open resolves p to a *Group or *Dataset. depth counts soft links followed.
func (g *Group) open(p string, depth int) (any, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	cur := g
	if len(p) > 0 && p[0] == '/' {
		cur = g.file.root
	}
	parts := SplitPath(p)
	if len(parts) == 0 {
		return cur, nil
	}
	for i, name := range parts {
		m := cur.member(name)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(cur.path, name))
		}
		obj, err := cur.resolve(m, depth)
		if err != nil {
			return nil, err
		}
		if i == len(parts)-1 {
			return obj, nil
		}
		next, ok := obj.(*Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, JoinPath(cur.path, name))
		}
		cur = next
	}
	return cur, nil
}

func (g *Group) resolve(m *member, depth int) (any, error) {
	switch {
	case m.group != nil:
		return m.group, nil
	case m.dataset != nil:
		return m.dataset, nil
	case m.soft:
		if depth >= MaxLinkDepth {
			return nil, fmt.Errorf("%w: %s -> %s", ErrLinkDepth, JoinPath(g.path, m.name), m.target)
		}
		return g.open(m.target, depth+1)
	}
	return g.file.openAt(m.addr, JoinPath(g.path, m.name))
}

func (g *Group) member(name string) *member {
	for _, m := range g.members {
		if m.name == name {
			return m
		}
	}
	return nil
}

// Members returns the link names of this group in creation order.
func (g *Group) Members() []string {
	names := make([]string, len(g.members))
	for i, m := range g.members {
		names[i] = m.name
	}
	return names
}

// NumObjects returns the number of links in this group.
func (g *Group) NumObjects() int {
	return len(g.members)
}

// Links describes every link of the group in creation order.
func (g *Group) Links() []LinkInfo {
	out := make([]LinkInfo, len(g.members))
	for i, m := range g.members {
		out[i] = LinkInfo{Name: m.name}
		if m.soft {
			out[i].Kind, out[i].Target = LinkSoft, m.target
		}
	}
	return out
}

// Attrs returns the attribute names for this group.
func (g *Group) Attrs() []string {
	return attrNames(g.attrs)
}

// Attr returns an attribute by name, or nil if not found.
func (g *Group) Attr(name string) *Attribute {
	return findAttr(g.attrs, name)
}

// HasAttr returns true if the group has an attribute with the given name.
func (g *Group) HasAttr(name string) bool {
	return g.Attr(name) != nil
}

// SetAttr adds or replaces an attribute on the group.
func (g *Group) SetAttr(name string, value any) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	attrs, err := setAttr(g.attrs, name, value)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", JoinAttrPath(g.path, name), err)
	}
	g.attrs = attrs
	return nil
}

// CreateGroup creates a new subgroup with the given name.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkCreate(name); err != nil {
		return nil, err
	}
	child := newWriteGroup(g.file, JoinPath(g.path, name))
	g.members = append(g.members, &member{name: name, group: child})
	return child, nil
}

// CreateSoftLink adds a link called name that resolves to target. The target
// does not have to exist yet.
func (g *Group) CreateSoftLink(name, target string) error {
	if err := g.checkCreate(name); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: empty soft link target for %s", ErrInvalidPath, name)
	}
	g.members = append(g.members, &member{name: name, soft: true, target: target})
	return nil
}

// Unlink removes the link called name from g. A removed hard-linked object
// is no longer written; space already reserved for its data stays in the file.
func (g *Group) Unlink(name string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	for i, m := range g.members {
		if m.name == name {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, JoinPath(g.path, name))
}

func (g *Group) checkCreate(name string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	if g.Contains(name) {
		return fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, name))
	}
	return nil
}
