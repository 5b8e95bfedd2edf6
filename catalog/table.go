package catalog

import (
	"fmt"
	"slices"
)

// Table is a column-oriented table with row-aligned, named columns kept in
// insertion order.
type Table struct {
	names   []string
	columns map[string]*Array
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{columns: map[string]*Array{}}
}

// AddColumn appends a column. Every column must have the same number of rows.
func (t *Table) AddColumn(name string, col *Array) error {
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("catalog: duplicate column %q", name)
	}
	if len(t.names) > 0 {
		if rows := t.Rows(); col.Dims()[0] != uint64(rows) {
			return fmt.Errorf("catalog: column %q has %d rows, table has %d", name, col.Dims()[0], rows)
		}
	}
	t.names = append(t.names, name)
	t.columns[name] = col
	return nil
}

// Column returns the named column.
func (t *Table) Column(name string) (*Array, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.columns[name]
	return c, ok
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.names)
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if t == nil || len(t.names) == 0 {
		return 0
	}
	return int(t.columns[t.names[0]].Dims()[0])
}
