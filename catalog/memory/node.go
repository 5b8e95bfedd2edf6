// Package memory is an in-memory run store. Nodes are built in code or loaded
// from YAML fixtures with LoadFixture.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-nexus/catalog"
)

// Node is a container, an array or a table. It satisfies catalog.Node,
// catalog.ArrayReader and catalog.TableReader; reads of a payload the node
// does not hold return catalog.ErrNotReadable.
type Node struct {
	mu       sync.RWMutex
	metadata *catalog.Map
	children []catalog.Child
	array    *catalog.Array
	table    *catalog.Table
	readErr  error
}

// NewContainer returns a node holding only children.
func NewContainer(md *catalog.Map) *Node {
	return &Node{metadata: orEmpty(md)}
}

// NewArrayNode returns a node holding a.
func NewArrayNode(a *catalog.Array, md *catalog.Map) *Node {
	return &Node{metadata: orEmpty(md), array: a}
}

// NewTableNode returns a node holding t.
func NewTableNode(t *catalog.Table, md *catalog.Map) *Node {
	return &Node{metadata: orEmpty(md), table: t}
}

func orEmpty(md *catalog.Map) *catalog.Map {
	if md == nil {
		return catalog.NewMap()
	}
	return md
}

// Add appends a child. Names are unique within a node.
func (n *Node) Add(name string, child catalog.Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.children {
		if c.Name == name {
			return fmt.Errorf("memory: duplicate child %q", name)
		}
	}
	n.children = append(n.children, catalog.Child{Name: name, Node: child})
	return nil
}

// FailReads makes every later ReadArray and ReadTable return err.
func (n *Node) FailReads(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.readErr = err
}

func (n *Node) Children(ctx context.Context) ([]catalog.Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.children), nil
}

func (n *Node) Metadata() *catalog.Map {
	return n.metadata
}

func (n *Node) ReadArray(ctx context.Context) (*catalog.Array, error) {
	if err := n.readable(ctx); err != nil {
		return nil, err
	}
	if n.array == nil {
		return nil, fmt.Errorf("%w: node holds no array", catalog.ErrNotReadable)
	}
	return n.array, nil
}

func (n *Node) ReadTable(ctx context.Context) (*catalog.Table, error) {
	if err := n.readable(ctx); err != nil {
		return nil, err
	}
	if n.table == nil {
		return nil, fmt.Errorf("%w: node holds no table", catalog.ErrNotReadable)
	}
	return n.table, nil
}

func (n *Node) readable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readErr
}
