// Package tablet models storage-engine tablets and the directory used to
// look them up. A tablet is addressed by (id, schema hash); two tablets with
// the same id but different hashes coexist during a schema change.
package tablet

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/idgen"
	"github.com/hupe1980/tabletio/meta"
	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/schema"
)

// DataDir is one storage root. It owns the meta store and the rowset id
// generator shared by all tablets under it.
type DataDir struct {
	path string
	meta *meta.Store
	ids  *idgen.Generator
}

// OpenDataDir opens (or creates) a data dir rooted at path.
func OpenDataDir(fs fsys.FileSystem, path string) (*DataDir, error) {
	if fs == nil {
		fs = fsys.Default
	}
	if err := fs.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", path, err)
	}
	store, err := meta.Open(filepath.Join(path, "meta"))
	if err != nil {
		return nil, err
	}
	return &DataDir{
		path: path,
		meta: store,
		ids:  idgen.New(store.DB(), 0),
	}, nil
}

// Path returns the data dir root.
func (d *DataDir) Path() string { return d.path }

// Meta returns the data dir's metadata store.
func (d *DataDir) Meta() *meta.Store { return d.meta }

// IDs returns the data-dir-scoped rowset id generator.
func (d *DataDir) IDs() *idgen.Generator { return d.ids }

// Close closes the data dir's meta store.
func (d *DataDir) Close() error { return d.meta.Close() }

// SchemaChangeRequest names the target tablet of an in-flight migration.
type SchemaChangeRequest struct {
	TabletID   model.TabletID
	SchemaHash model.SchemaHash
}

// Tablet is one shard of a table's data at one schema version.
type Tablet struct {
	id         model.TabletID
	schemaHash model.SchemaHash
	schema     *schema.Schema
	keyModel   model.KeyModel
	dataDir    *DataDir
	path       string

	// pushMu serializes load-side critical sections: transaction prepare,
	// schema change detection and pending dir creation.
	pushMu sync.Mutex

	mu    sync.RWMutex
	scReq *SchemaChangeRequest
}

// New creates a tablet rooted under dir.
func New(id model.TabletID, schemaHash model.SchemaHash, s *schema.Schema, keyModel model.KeyModel, dir *DataDir) *Tablet {
	return &Tablet{
		id:         id,
		schemaHash: schemaHash,
		schema:     s,
		keyModel:   keyModel,
		dataDir:    dir,
		path:       filepath.Join(dir.Path(), fmt.Sprintf("%d_%d", id, schemaHash)),
	}
}

// ID returns the tablet id.
func (t *Tablet) ID() model.TabletID { return t.id }

// SchemaHash returns the tablet's schema hash.
func (t *Tablet) SchemaHash() model.SchemaHash { return t.schemaHash }

// Schema returns the tablet's column schema.
func (t *Tablet) Schema() *schema.Schema { return t.schema }

// KeyModel returns the tablet's key model.
func (t *Tablet) KeyModel() model.KeyModel { return t.keyModel }

// DataDir returns the data dir the tablet lives in.
func (t *Tablet) DataDir() *DataDir { return t.dataDir }

// Path returns the tablet's directory.
func (t *Tablet) Path() string { return t.path }

// PendingDirPath returns the directory uncommitted rowsets are written to.
func (t *Tablet) PendingDirPath() string { return filepath.Join(t.path, "pending") }

// PushLock returns the tablet's load serialization lock. It must be held
// only for short critical sections, never across flush or build.
func (t *Tablet) PushLock() *sync.Mutex { return &t.pushMu }

// SetSchemaChangeRequest marks a migration to the given target as in flight.
func (t *Tablet) SetSchemaChangeRequest(req SchemaChangeRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scReq = &req
}

// ClearSchemaChangeRequest removes the migration marker.
func (t *Tablet) ClearSchemaChangeRequest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scReq = nil
}

// SchemaChangeRequest reports the in-flight migration target, if any.
func (t *Tablet) SchemaChangeRequest() (SchemaChangeRequest, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.scReq == nil {
		return SchemaChangeRequest{}, false
	}
	return *t.scReq, true
}

// FullName returns the human-readable tablet identity.
func (t *Tablet) FullName() string {
	return fmt.Sprintf("%d.%d", t.id, t.schemaHash)
}
