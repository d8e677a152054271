// Package schema describes tablet column schemas and the mapping between a
// load request's row shape and the schema's column order.
package schema

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tabletio/model"
)

var (
	// ErrNoKeyColumns is returned when a schema declares no key columns.
	ErrNoKeyColumns = errors.New("schema has no key columns")

	// ErrKeyOrder is returned when key columns are not a prefix of the schema.
	ErrKeyOrder = errors.New("key columns must precede value columns")

	// ErrUnmappedColumn is returned when a schema column has no matching
	// field in the request row shape.
	ErrUnmappedColumn = errors.New("schema column not present in row shape")
)

// Aggregation selects the merge behavior of a value column under AggKeys.
// The arithmetic itself lives in the memtable's merge dispatch.
type Aggregation uint8

const (
	AggNone Aggregation = iota
	AggReplace
	AggSum
	AggMin
	AggMax
)

// Column is one tablet schema column.
type Column struct {
	Name string
	Kind model.Kind
	Key  bool
	Agg  Aggregation
}

// Schema is an ordered tablet column schema. Key columns form a prefix.
type Schema struct {
	columns []Column
	numKeys int
}

// New validates the column list and builds a schema. Key columns must come
// first and at least one key column is required.
func New(columns ...Column) (*Schema, error) {
	numKeys := 0
	seenValue := false
	for _, c := range columns {
		if c.Key {
			if seenValue {
				return nil, fmt.Errorf("%w: column %q", ErrKeyOrder, c.Name)
			}
			numKeys++
		} else {
			seenValue = true
		}
	}
	if numKeys == 0 {
		return nil, ErrNoKeyColumns
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{columns: cols, numKeys: numKeys}, nil
}

// NumColumns returns the number of columns.
func (s *Schema) NumColumns() int { return len(s.columns) }

// NumKeyColumns returns the number of key columns.
func (s *Schema) NumKeyColumns() int { return s.numKeys }

// Column returns the i-th column.
func (s *Schema) Column(i int) Column { return s.columns[i] }

// Columns returns a copy of the column list.
func (s *Schema) Columns() []Column {
	cols := make([]Column, len(s.columns))
	copy(cols, s.columns)
	return cols
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// RowShape is the ordered list of field names of a load request's rows.
type RowShape []string

// ColumnMapping routes row-shape field positions into schema column order.
// Entry i holds the row-shape index feeding schema column i.
type ColumnMapping []int

// BuildColumnMapping name-matches the row shape against the schema. When a
// field name appears more than once in the shape, the first match wins. A
// schema column with no matching field fails with ErrUnmappedColumn.
func BuildColumnMapping(shape RowShape, s *Schema) (ColumnMapping, error) {
	m := make(ColumnMapping, s.NumColumns())
	for i := 0; i < s.NumColumns(); i++ {
		col := s.Column(i)
		m[i] = -1
		for j, name := range shape {
			if name == col.Name {
				m[i] = j
				break
			}
		}
		if m[i] < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnmappedColumn, col.Name)
		}
	}
	return m, nil
}

// Reorder produces a schema-ordered record from a row in shape order.
func (m ColumnMapping) Reorder(row model.Row) (model.Row, error) {
	rec := make(model.Row, len(m))
	for i, src := range m {
		if src >= len(row) {
			return nil, fmt.Errorf("row has %d fields, mapping needs index %d", len(row), src)
		}
		rec[i] = row[src]
	}
	return rec, nil
}
