package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
)

func TestRowsetMetaRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	m := rowset.Meta{
		RowsetID:    3,
		TabletID:    100,
		PartitionID: 1,
		SchemaHash:  42,
		TxnID:       9,
		LoadID:      "load-1",
		RowCount:    5,
		DataSize:    128,
		State:       rowset.StateBuilt,
		Path:        "/data/100_42/pending/rowset_3.seg",
	}
	require.NoError(t, s.SaveRowsetMeta(3, m))

	got, ok, err := s.LoadRowsetMeta(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m, got)
}

func TestLoadMissing(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.LoadRowsetMeta(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveRowsetMeta(1, rowset.Meta{RowsetID: 1}))
	require.NoError(t, s.DeleteRowsetMeta(1))
	require.NoError(t, s.DeleteRowsetMeta(1))

	_, ok, err := s.LoadRowsetMeta(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveRowsetMeta(5, rowset.Meta{RowsetID: 5, TabletID: 1}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.LoadRowsetMeta(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.RowsetID(5), got.RowsetID)
}
