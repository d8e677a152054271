package model

import "fmt"

// TabletID identifies a tablet within the storage engine.
type TabletID uint64

// SchemaHash identifies the schema version of a tablet. A tablet is
// addressed by the (TabletID, SchemaHash) pair.
type SchemaHash uint32

// PartitionID identifies the partition a load transaction targets.
type PartitionID uint64

// TxnID identifies a load transaction.
type TxnID uint64

// LoadID is the caller-supplied identifier of one load job. It is opaque to
// the write path and only recorded for transaction bookkeeping.
type LoadID string

// RowsetID identifies an immutable rowset. IDs are allocated from a
// data-dir-scoped generator and never reused.
type RowsetID uint64

// KeyModel governs how rows with equal key columns are merged.
type KeyModel uint8

const (
	// DupKeys keeps every row, preserving insertion order.
	DupKeys KeyModel = iota
	// AggKeys collapses rows with equal keys through per-column aggregation.
	AggKeys
	// UniqueKeys keeps only the most recently written row per key.
	UniqueKeys
)

func (k KeyModel) String() string {
	switch k {
	case DupKeys:
		return "DUP_KEYS"
	case AggKeys:
		return "AGG_KEYS"
	case UniqueKeys:
		return "UNIQUE_KEYS"
	default:
		return fmt.Sprintf("KeyModel(%d)", uint8(k))
	}
}

// TabletInfo reports one tablet a load transaction actually wrote to.
type TabletInfo struct {
	TabletID   TabletID   `json:"tablet_id"`
	SchemaHash SchemaHash `json:"schema_hash"`
}

func (t TabletInfo) String() string {
	return fmt.Sprintf("tablet(%d:%d)", t.TabletID, t.SchemaHash)
}
