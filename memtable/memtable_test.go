package memtable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/schema"
)

type captureWriter struct {
	batches [][]model.Row
}

func (c *captureWriter) AppendBatch(rows []model.Row) error {
	c.batches = append(c.batches, rows)
	return nil
}

type failWriter struct {
	err error
}

func (f *failWriter) AppendBatch([]model.Row) error { return f.err }

func newSchema(t *testing.T, agg schema.Aggregation) (*schema.Schema, schema.ColumnMapping) {
	t.Helper()
	s, err := schema.New(
		schema.Column{Name: "k", Kind: model.KindInt, Key: true},
		schema.Column{Name: "v", Kind: model.KindInt, Agg: agg},
	)
	require.NoError(t, err)
	m, err := schema.BuildColumnMapping(schema.RowShape{"k", "v"}, s)
	require.NoError(t, err)
	return s, m
}

func TestInsertDupKeysOrder(t *testing.T) {
	s, m := newSchema(t, schema.AggNone)
	mt := New(s, model.DupKeys, m)

	require.NoError(t, mt.Insert(model.Row{model.Int(3), model.Int(30)}))
	require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(10)}))
	require.NoError(t, mt.Insert(model.Row{model.Int(3), model.Int(31)}))
	assert.Equal(t, 3, mt.RowCount())

	var w captureWriter
	require.NoError(t, mt.Flush(&w))
	require.Len(t, w.batches, 1)

	// Insertion order, duplicates kept.
	keys := make([]int64, 0, 3)
	for _, row := range w.batches[0] {
		keys = append(keys, row[0].I64)
	}
	assert.Equal(t, []int64{3, 1, 3}, keys)
}

func TestInsertKeyedOrderAndCollapse(t *testing.T) {
	tests := []struct {
		name     string
		keyModel model.KeyModel
		agg      schema.Aggregation
		want     int64 // merged value for key 1
	}{
		{name: "unique replaces", keyModel: model.UniqueKeys, agg: schema.AggNone, want: 11},
		{name: "agg replace", keyModel: model.AggKeys, agg: schema.AggReplace, want: 11},
		{name: "agg sum", keyModel: model.AggKeys, agg: schema.AggSum, want: 21},
		{name: "agg min", keyModel: model.AggKeys, agg: schema.AggMin, want: 10},
		{name: "agg max", keyModel: model.AggKeys, agg: schema.AggMax, want: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newSchema(t, tt.agg)
			mt := New(s, tt.keyModel, m)

			require.NoError(t, mt.Insert(model.Row{model.Int(2), model.Int(20)}))
			require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(10)}))
			require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(11)}))
			assert.Equal(t, 2, mt.RowCount())

			var w captureWriter
			require.NoError(t, mt.Flush(&w))
			require.Len(t, w.batches, 1)
			require.Len(t, w.batches[0], 2)

			// Ascending key order.
			assert.Equal(t, int64(1), w.batches[0][0][0].I64)
			assert.Equal(t, int64(2), w.batches[0][1][0].I64)
			assert.Equal(t, tt.want, w.batches[0][0][1].I64)
		})
	}
}

func TestMemoryUsageMonotone(t *testing.T) {
	s, m := newSchema(t, schema.AggSum)
	mt := New(s, model.AggKeys, m)

	prev := mt.MemoryUsage()
	assert.Zero(t, prev)

	// Usage grows on every insert, merges included.
	for i := 0; i < 10; i++ {
		require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(int64(i))}))
		cur := mt.MemoryUsage()
		assert.Greater(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 1, mt.RowCount())
}

func TestReorderThroughMapping(t *testing.T) {
	s, err := schema.New(
		schema.Column{Name: "a", Kind: model.KindInt, Key: true},
		schema.Column{Name: "b", Kind: model.KindInt},
		schema.Column{Name: "c", Kind: model.KindString},
	)
	require.NoError(t, err)
	m, err := schema.BuildColumnMapping(schema.RowShape{"c", "a", "b"}, s)
	require.NoError(t, err)

	mt := New(s, model.DupKeys, m)
	require.NoError(t, mt.Insert(model.Row{model.String("x"), model.Int(1), model.Int(2)}))

	var w captureWriter
	require.NoError(t, mt.Flush(&w))
	require.Len(t, w.batches[0], 1)
	assert.Equal(t, model.Row{model.Int(1), model.Int(2), model.String("x")}, w.batches[0][0])
}

func TestConsumed(t *testing.T) {
	s, m := newSchema(t, schema.AggNone)
	mt := New(s, model.DupKeys, m)
	require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(10)}))

	var w captureWriter
	require.NoError(t, mt.Flush(&w))

	require.ErrorIs(t, mt.Insert(model.Row{model.Int(2), model.Int(20)}), ErrConsumed)
	require.ErrorIs(t, mt.Flush(&w), ErrConsumed)
}

func TestFlushWriterError(t *testing.T) {
	s, m := newSchema(t, schema.AggNone)
	mt := New(s, model.DupKeys, m)
	require.NoError(t, mt.Insert(model.Row{model.Int(1), model.Int(10)}))

	// The writer's error propagates and the memtable stays consumed.
	sentinel := errors.New("writer rejected batch")
	require.ErrorIs(t, mt.Flush(&failWriter{err: sentinel}), sentinel)
	require.ErrorIs(t, mt.Insert(model.Row{model.Int(2), model.Int(20)}), ErrConsumed)
}

func TestRowShapeMismatch(t *testing.T) {
	s, m := newSchema(t, schema.AggNone)
	mt := New(s, model.DupKeys, m)
	require.ErrorIs(t, mt.Insert(model.Row{model.Int(1)}), ErrRowShape)
}
