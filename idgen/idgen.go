// Package idgen allocates rowset ids scoped to one data dir. Ids are handed
// out from an in-memory window whose high-water mark is persisted, so ids
// stay unique across restarts without a sync write per allocation.
package idgen

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/hupe1980/tabletio/model"
)

const (
	hwmKey = "rowset_id_hwm"

	// DefaultBatch is the number of ids reserved per persisted bump.
	DefaultBatch = 1000
)

// Generator allocates monotonically increasing rowset ids.
type Generator struct {
	mu    sync.Mutex
	db    *leveldb.DB
	next  uint64
	end   uint64
	batch uint64
}

// New creates a generator backed by db. Batch sizes <= 0 fall back to
// DefaultBatch.
func New(db *leveldb.DB, batch int) *Generator {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Generator{db: db, batch: uint64(batch)}
}

// NextID returns the next rowset id, reserving a fresh window from the
// persisted high-water mark when the current one is exhausted. Ids start
// at 1; zero is never handed out.
func (g *Generator) NextID() (model.RowsetID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next >= g.end {
		if err := g.reserve(); err != nil {
			return 0, err
		}
	}
	id := g.next
	g.next++
	return model.RowsetID(id), nil
}

func (g *Generator) reserve() error {
	var cur uint64
	data, err := g.db.Get([]byte(hwmKey), nil)
	switch err {
	case nil:
		if len(data) != 8 {
			return fmt.Errorf("corrupt rowset id high-water mark (%d bytes)", len(data))
		}
		cur = binary.BigEndian.Uint64(data)
	case leveldb.ErrNotFound:
		cur = 1
	default:
		return err
	}

	end := cur + g.batch
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, end)
	if err := g.db.Put([]byte(hwmKey), buf, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	g.next = cur
	g.end = end
	return nil
}
