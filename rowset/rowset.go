// Package rowset builds and describes the immutable on-disk artifacts
// produced by one load transaction for one tablet.
package rowset

import (
	"github.com/hupe1980/tabletio/model"
)

// State is the lifecycle state of a rowset.
type State uint8

const (
	// StatePrepared is the state between builder construction and Build.
	StatePrepared State = iota
	// StateBuilt marks a finalized, immutable rowset.
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "PREPARED"
	case StateBuilt:
		return "BUILT"
	default:
		return "UNKNOWN"
	}
}

// Meta is the durable description of a rowset, persisted by the meta store
// keyed by rowset id.
type Meta struct {
	RowsetID    model.RowsetID    `json:"rowset_id"`
	TabletID    model.TabletID    `json:"tablet_id"`
	PartitionID model.PartitionID `json:"partition_id"`
	SchemaHash  model.SchemaHash  `json:"schema_hash"`
	TxnID       model.TxnID       `json:"txn_id"`
	LoadID      model.LoadID      `json:"load_id"`
	RowCount    int               `json:"row_count"`
	DataSize    int64             `json:"data_size"`
	State       State             `json:"state"`
	Path        string            `json:"path"`
	CreatedUnix int64             `json:"created_unix"`
}

// Rowset is a finalized, immutable artifact. The record batches are retained
// in memory so a concurrent schema change can convert them without re-reading
// the segment file.
type Rowset struct {
	meta    Meta
	batches [][]model.Row
}

// ID returns the rowset id.
func (r *Rowset) ID() model.RowsetID { return r.meta.RowsetID }

// Meta returns a copy of the rowset's metadata.
func (r *Rowset) Meta() Meta { return r.meta }

// Path returns the segment file path.
func (r *Rowset) Path() string { return r.meta.Path }

// RowCount returns the number of rows in the rowset.
func (r *Rowset) RowCount() int { return r.meta.RowCount }

// Iterate calls fn for every row in flush order.
func (r *Rowset) Iterate(fn func(row model.Row) error) error {
	for _, batch := range r.batches {
		for _, row := range batch {
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}
