package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotReadable is returned when a node has no payload of the requested kind.
var ErrNotReadable = errors.New("catalog: node is not readable")

// ErrNoChild is returned by Lookup when a named child does not exist.
var ErrNoChild = errors.New("catalog: no such child")

// Node is one entry of a run store. Containers enumerate children; leaves
// additionally implement ArrayReader or TableReader.
type Node interface {
	// Children returns the child nodes in insertion order.
	Children(ctx context.Context) ([]Child, error)
	// Metadata returns the node's descriptor mapping. It is never nil.
	Metadata() *Map
}

// Child is a named child node.
type Child struct {
	Name string
	Node Node
}

// ArrayReader is a node holding an N-dimensional array.
type ArrayReader interface {
	ReadArray(ctx context.Context) (*Array, error)
}

// TableReader is a node holding a column table.
type TableReader interface {
	ReadTable(ctx context.Context) (*Table, error)
}

// ReadArray reads n as an array.
func ReadArray(ctx context.Context, n Node) (*Array, error) {
	r, ok := n.(ArrayReader)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no array", ErrNotReadable, n)
	}
	return r.ReadArray(ctx)
}

// ReadTable reads n as a table.
func ReadTable(ctx context.Context, n Node) (*Table, error) {
	r, ok := n.(TableReader)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no table", ErrNotReadable, n)
	}
	return r.ReadTable(ctx)
}

// Lookup returns the child of n called name.
func Lookup(ctx context.Context, n Node, name string) (Node, error) {
	children, err := n.Children(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Name == name {
			return c.Node, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoChild, name)
}
