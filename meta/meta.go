// Package meta persists rowset metadata durably, keyed by rowset id. A save
// is the durability boundary of a load: once the meta record is written, the
// rowset counts as committed-pending.
package meta

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
)

const rowsetKeyPrefix = "rst_"

// Store is a goleveldb-backed metadata store scoped to one data dir.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open meta store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying database so sibling bookkeeping (rowset id
// allocation) can share the same store.
func (s *Store) DB() *leveldb.DB { return s.db }

func rowsetKey(id model.RowsetID) []byte {
	key := make([]byte, len(rowsetKeyPrefix)+8)
	copy(key, rowsetKeyPrefix)
	binary.BigEndian.PutUint64(key[len(rowsetKeyPrefix):], uint64(id))
	return key
}

// SaveRowsetMeta durably writes the meta record for a rowset.
func (s *Store) SaveRowsetMeta(id model.RowsetID, m rowset.Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Put(rowsetKey(id), data, &opt.WriteOptions{Sync: true})
}

// LoadRowsetMeta reads a rowset meta record back. The second return value
// reports whether the record exists.
func (s *Store) LoadRowsetMeta(id model.RowsetID) (rowset.Meta, bool, error) {
	data, err := s.db.Get(rowsetKey(id), nil)
	if err == leveldb.ErrNotFound {
		return rowset.Meta{}, false, nil
	}
	if err != nil {
		return rowset.Meta{}, false, err
	}
	var m rowset.Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return rowset.Meta{}, false, err
	}
	return m, true, nil
}

// DeleteRowsetMeta removes a rowset meta record. It is idempotent.
func (s *Store) DeleteRowsetMeta(id model.RowsetID) error {
	return s.db.Delete(rowsetKey(id), &opt.WriteOptions{Sync: true})
}
