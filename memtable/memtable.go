// Package memtable buffers the rows of one load transaction in memory until
// the write coordinator spills them into a rowset.
//
// A memtable is bound to one tablet schema and key model. Under DupKeys every
// insert is kept in arrival order; under AggKeys and UniqueKeys rows with
// equal key columns collapse into a single record through the merge dispatch.
// A memtable is single-writer and is consumed by Flush/Close; it is not safe
// for concurrent use.
package memtable

import (
	"errors"
	"fmt"

	"github.com/google/btree"

	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/schema"
)

var (
	// ErrConsumed is returned when a row is inserted after Flush or Close.
	ErrConsumed = errors.New("memtable already flushed")

	// ErrRowShape is returned when a row does not match the request shape.
	ErrRowShape = errors.New("row does not match request shape")
)

// BatchWriter receives one flushed batch of schema-ordered rows.
// *rowset.Builder satisfies it.
type BatchWriter interface {
	AppendBatch(rows []model.Row) error
}

const btreeDegree = 16

type entry struct {
	row model.Row
}

// MemTable is the in-memory row buffer of one (tablet, transaction) pair.
type MemTable struct {
	schema   *schema.Schema
	keyModel model.KeyModel
	mapping  schema.ColumnMapping
	shapeLen int

	rows  []model.Row          // DupKeys: insertion order
	index *btree.BTreeG[entry] // keyed models: key order

	usage    int64
	consumed bool
}

// New creates an empty memtable for the given schema, key model and column
// index mapping.
func New(s *schema.Schema, keyModel model.KeyModel, mapping schema.ColumnMapping) *MemTable {
	m := &MemTable{
		schema:   s,
		keyModel: keyModel,
		mapping:  mapping,
		shapeLen: shapeLen(mapping),
	}
	if keyModel != model.DupKeys {
		numKeys := s.NumKeyColumns()
		m.index = btree.NewG(btreeDegree, func(a, b entry) bool {
			return a.row.CompareKeys(b.row, numKeys) < 0
		})
	}
	return m
}

func shapeLen(mapping schema.ColumnMapping) int {
	max := 0
	for _, idx := range mapping {
		if idx+1 > max {
			max = idx + 1
		}
	}
	return max
}

// Insert admits one row in request shape order. The row is reindexed into
// schema column order and merged according to the key model.
func (m *MemTable) Insert(row model.Row) error {
	if m.consumed {
		return ErrConsumed
	}
	if len(row) < m.shapeLen {
		return fmt.Errorf("%w: got %d fields, need at least %d", ErrRowShape, len(row), m.shapeLen)
	}
	rec, err := m.mapping.Reorder(row)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRowShape, err)
	}

	// Usage accounts every admitted row and is never decremented by merges;
	// callers rely on it being monotone until the buffer is flushed.
	m.usage += rec.Size()

	if m.keyModel == model.DupKeys {
		m.rows = append(m.rows, rec)
		return nil
	}

	e := entry{row: rec}
	if existing, ok := m.index.Get(e); ok {
		m.merge(existing.row, rec)
		return nil
	}
	m.index.ReplaceOrInsert(e)
	return nil
}

// merge folds src into dst per the value columns' aggregation. UniqueKeys
// replaces the whole row; AggKeys dispatches per column.
func (m *MemTable) merge(dst, src model.Row) {
	numKeys := m.schema.NumKeyColumns()
	for i := numKeys; i < len(dst); i++ {
		if m.keyModel == model.UniqueKeys {
			dst[i] = src[i]
			continue
		}
		dst[i] = mergeValue(m.schema.Column(i).Agg, dst[i], src[i])
	}
}

func mergeValue(agg schema.Aggregation, old, in model.Value) model.Value {
	switch agg {
	case schema.AggSum:
		switch old.Kind {
		case model.KindInt:
			return model.Int(old.I64 + in.I64)
		case model.KindFloat:
			return model.Float(old.F64 + in.F64)
		}
		return in
	case schema.AggMin:
		if in.Compare(old) < 0 {
			return in
		}
		return old
	case schema.AggMax:
		if in.Compare(old) > 0 {
			return in
		}
		return old
	default: // AggNone, AggReplace
		return in
	}
}

// MemoryUsage returns the accumulated footprint of all admitted rows. It is
// maintained incrementally and monotonically non-decreasing until flush.
func (m *MemTable) MemoryUsage() int64 { return m.usage }

// RowCount returns the number of live records.
func (m *MemTable) RowCount() int {
	if m.keyModel == model.DupKeys {
		return len(m.rows)
	}
	return m.index.Len()
}

// Flush hands the buffered rows to the writer as one batch, in insertion
// order for DupKeys and ascending key order otherwise, and consumes the
// memtable.
func (m *MemTable) Flush(w BatchWriter) error {
	if m.consumed {
		return ErrConsumed
	}
	m.consumed = true

	var batch []model.Row
	if m.keyModel == model.DupKeys {
		batch = m.rows
		m.rows = nil
	} else {
		batch = make([]model.Row, 0, m.index.Len())
		m.index.Ascend(func(e entry) bool {
			batch = append(batch, e.row)
			return true
		})
		m.index.Clear(false)
	}
	return w.AppendBatch(batch)
}

// Close flushes the final, possibly partial buffer. It is Flush under a name
// matching the coordinator's finalize step.
func (m *MemTable) Close(w BatchWriter) error { return m.Flush(w) }
