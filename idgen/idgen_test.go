package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/hupe1980/tabletio/model"
)

func openDB(t *testing.T, dir string) *leveldb.DB {
	t.Helper()
	db, err := leveldb.OpenFile(dir, nil)
	require.NoError(t, err)
	return db
}

func TestNextIDMonotone(t *testing.T) {
	db := openDB(t, t.TempDir())
	defer db.Close()

	g := New(db, 10)
	var prev model.RowsetID
	for i := 0; i < 25; i++ {
		id, err := g.NextID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
	assert.Equal(t, model.RowsetID(25), prev)
}

func TestIDsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	db := openDB(t, dir)
	g := New(db, 10)
	var last model.RowsetID
	for i := 0; i < 5; i++ {
		id, err := g.NextID()
		require.NoError(t, err)
		last = id
	}
	require.NoError(t, db.Close())

	// A fresh generator starts past the persisted high-water mark, so ids
	// are never reused even though the old window was only partly consumed.
	db = openDB(t, dir)
	defer db.Close()
	g = New(db, 10)

	id, err := g.NextID()
	require.NoError(t, err)
	assert.Greater(t, id, last)
}

func TestZeroNeverIssued(t *testing.T) {
	db := openDB(t, t.TempDir())
	defer db.Close()

	g := New(db, 1)
	id, err := g.NextID()
	require.NoError(t, err)
	assert.Equal(t, model.RowsetID(1), id)
}
