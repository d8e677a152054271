// Package txn tracks which load transactions have been prepared against
// which tablets, so an aborted or crashed load can be unwound.
package txn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/tabletio/model"
)

// ErrConflict is returned when a (partition, txn, tablet) slot is already
// prepared by a different load.
var ErrConflict = errors.New("transaction already prepared by another load")

// Manager is the registry contract consumed by the write coordinator.
// Prepare registers a load transaction against one tablet; Delete removes
// the registration and is idempotent.
type Manager interface {
	Prepare(partition model.PartitionID, txnID model.TxnID, tabletID model.TabletID, schemaHash model.SchemaHash, loadID model.LoadID) error
	Delete(partition model.PartitionID, txnID model.TxnID, tabletID model.TabletID, schemaHash model.SchemaHash) error
}

type key struct {
	partition  model.PartitionID
	txnID      model.TxnID
	tabletID   model.TabletID
	schemaHash model.SchemaHash
}

// Registry is the in-memory Manager implementation. It is safe for
// concurrent use by multiple write coordinators.
type Registry struct {
	mu      sync.Mutex
	entries map[key]model.LoadID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]model.LoadID)}
}

// Prepare registers the transaction. Re-preparing with the same load id is a
// no-op; a different load id fails with ErrConflict.
func (r *Registry) Prepare(partition model.PartitionID, txnID model.TxnID, tabletID model.TabletID, schemaHash model.SchemaHash, loadID model.LoadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{partition, txnID, tabletID, schemaHash}
	if existing, ok := r.entries[k]; ok {
		if existing != loadID {
			return fmt.Errorf("%w: txn %d tablet %d", ErrConflict, txnID, tabletID)
		}
		return nil
	}
	r.entries[k] = loadID
	return nil
}

// Delete removes the registration. Deleting an absent entry is a no-op.
func (r *Registry) Delete(partition model.PartitionID, txnID model.TxnID, tabletID model.TabletID, schemaHash model.SchemaHash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key{partition, txnID, tabletID, schemaHash})
	return nil
}

// IsPrepared reports whether the transaction is currently registered.
func (r *Registry) IsPrepared(partition model.PartitionID, txnID model.TxnID, tabletID model.TabletID, schemaHash model.SchemaHash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key{partition, txnID, tabletID, schemaHash}]
	return ok
}

// Count returns the number of registered transactions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ Manager = (*Registry)(nil)
