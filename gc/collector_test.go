package gc

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
	"github.com/hupe1980/tabletio/schema"
)

func buildRowset(t *testing.T, dir string, id model.RowsetID) *rowset.Rowset {
	t.Helper()
	s, err := schema.New(
		schema.Column{Name: "k", Kind: model.KindInt, Key: true},
	)
	require.NoError(t, err)

	b, err := rowset.NewBuilder(rowset.BuilderContext{
		RowsetID:   id,
		TabletID:   100,
		SchemaHash: 42,
		PathPrefix: dir,
		Schema:     s,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.AppendBatch([]model.Row{{model.Int(1)}}))

	rs, err := b.Build(context.Background())
	require.NoError(t, err)
	return rs
}

func TestCollectorRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	rs1 := buildRowset(t, dir, 1)
	rs2 := buildRowset(t, dir, 2)

	c := New(nil, 2, nil)
	c.AddUnused(rs1)
	c.AddUnused(rs2)
	c.Close() // drains the queue

	_, err := os.Stat(rs1.Path())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(rs2.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestAddUnusedAfterClose(t *testing.T) {
	dir := t.TempDir()
	rs := buildRowset(t, dir, 3)

	c := New(nil, 1, nil)
	c.Close()
	c.Close() // idempotent

	// Must not panic; the rowset is leaked for a later sweep.
	c.AddUnused(rs)
	_, err := os.Stat(rs.Path())
	require.NoError(t, err)
}

func TestAddUnusedNil(t *testing.T) {
	c := New(nil, 1, nil)
	defer c.Close()
	c.AddUnused(nil)
}
