package tabletio

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/memtable"
	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
	"github.com/hupe1980/tabletio/schema"
	"github.com/hupe1980/tabletio/schemachange"
	"github.com/hupe1980/tabletio/tablet"
	"github.com/hupe1980/tabletio/txn"
)

// WriteRequest describes one load transaction against one tablet. It is
// immutable for the lifetime of the DeltaWriter it opens.
type WriteRequest struct {
	TabletID    model.TabletID
	SchemaHash  model.SchemaHash
	PartitionID model.PartitionID
	TxnID       model.TxnID
	LoadID      model.LoadID

	// RowShape is the ordered field-name list of the incoming rows.
	RowShape schema.RowShape

	// NeedTrackSchemaChange requests migration detection at init: when a
	// schema change is in flight for the tablet, the load is duplicated
	// into the migration target.
	NeedTrackSchemaChange bool
}

func (r *WriteRequest) validate() error {
	switch {
	case r.TabletID == 0:
		return errors.New("write request: tablet id is zero")
	case r.TxnID == 0:
		return errors.New("write request: txn id is zero")
	case len(r.RowShape) == 0:
		return errors.New("write request: row shape is empty")
	}
	return nil
}

// RowsetCollector receives built-but-uncommitted rowsets for asynchronous
// removal. *gc.Collector satisfies it.
type RowsetCollector interface {
	AddUnused(rs *rowset.Rowset)
}

// Deps are the injected collaborators of a DeltaWriter. Txns and Tablets
// are required; Converter is required only for loads that may dual-write;
// a nil FS means the local file system; a nil Collector leaks uncommitted
// segments to a later sweep.
type Deps struct {
	Txns      txn.Manager
	Tablets   tablet.Directory
	Collector RowsetCollector
	Converter schemachange.Converter
	FS        fsys.FileSystem
}

func (d *Deps) validate() error {
	switch {
	case d.Txns == nil:
		return errors.New("deps: txn manager is nil")
	case d.Tablets == nil:
		return errors.New("deps: tablet directory is nil")
	}
	return nil
}

// DeltaWriter is the write coordinator of one (tablet, transaction) pair.
// It owns the current memtable and the rowset builder, initializes lazily on
// the first Write or on Close, and unwinds everything it registered when
// released without a successful Close.
//
// A DeltaWriter is not safe for concurrent use.
type DeltaWriter struct {
	req    WriteRequest
	deps   Deps
	opts   options
	logger *Logger

	initialized bool
	committed   bool
	released    bool

	tab             *tablet.Tablet
	related         *tablet.Tablet
	prepared        bool
	relatedPrepared bool

	mapping schema.ColumnMapping
	mem     *memtable.MemTable
	builder *rowset.Builder

	cur           *rowset.Rowset
	relatedRowset *rowset.Rowset
}

// Open constructs a DeltaWriter. It performs no I/O, takes no locks and
// registers nothing; it fails only on a malformed request or missing deps.
func Open(req WriteRequest, deps Deps, optFns ...Option) (*DeltaWriter, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.FS == nil {
		deps.FS = fsys.Default
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &DeltaWriter{
		req:    req,
		deps:   deps,
		opts:   opts,
		logger: opts.logger.WithTablet(req.TabletID, req.SchemaHash).WithTxn(req.TxnID),
	}, nil
}

// ensureInit resolves the tablet, prepares the transaction(s), creates the
// pending dir and allocates memtable and builder. It runs at most once and
// is invoked lazily by Write and Close.
func (w *DeltaWriter) ensureInit(ctx context.Context) error {
	if w.initialized {
		return nil
	}

	t, ok := w.deps.Tablets.GetTablet(w.req.TabletID, w.req.SchemaHash)
	if !ok {
		return fmt.Errorf("%w: tablet %d schema hash %d", ErrTabletNotFound, w.req.TabletID, w.req.SchemaHash)
	}
	w.tab = t

	// The push lock covers only transaction prepare, migration detection
	// and pending dir creation. It must not be held across flush or build.
	if err := w.initUnderPushLock(t); err != nil {
		return err
	}

	id, err := t.DataDir().IDs().NextID()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIDGeneration, err)
	}

	builder, err := rowset.NewBuilder(rowset.BuilderContext{
		RowsetID:    id,
		TabletID:    w.req.TabletID,
		PartitionID: w.req.PartitionID,
		SchemaHash:  w.req.SchemaHash,
		TxnID:       w.req.TxnID,
		LoadID:      w.req.LoadID,
		PathPrefix:  t.PendingDirPath(),
		Schema:      t.Schema(),
	}, w.deps.FS)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuilderInit, err)
	}
	w.builder = builder

	mapping, err := schema.BuildColumnMapping(w.req.RowShape, t.Schema())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrColumnMismatch, err)
	}
	w.mapping = mapping
	w.mem = memtable.New(t.Schema(), t.KeyModel(), mapping)

	w.initialized = true
	return nil
}

func (w *DeltaWriter) initUnderPushLock(t *tablet.Tablet) error {
	mu := t.PushLock()
	mu.Lock()
	defer mu.Unlock()

	if err := w.deps.Txns.Prepare(w.req.PartitionID, w.req.TxnID, w.req.TabletID, w.req.SchemaHash, w.req.LoadID); err != nil {
		return fmt.Errorf("%w: %w", ErrTxnPrepare, err)
	}
	w.prepared = true

	if w.req.NeedTrackSchemaChange {
		if screq, ok := t.SchemaChangeRequest(); ok {
			related, ok := w.deps.Tablets.GetTablet(screq.TabletID, screq.SchemaHash)
			if !ok {
				return fmt.Errorf("%w: migration target tablet %d schema hash %d", ErrTabletNotFound, screq.TabletID, screq.SchemaHash)
			}
			if err := w.deps.Txns.Prepare(w.req.PartitionID, w.req.TxnID, related.ID(), related.SchemaHash(), w.req.LoadID); err != nil {
				return fmt.Errorf("%w: migration target %s: %w", ErrTxnPrepare, related.FullName(), err)
			}
			w.related = related
			w.relatedPrepared = true
			w.logger.Info("load with schema change",
				"new_tablet_id", uint64(related.ID()),
				"new_schema_hash", uint32(related.SchemaHash()),
			)
		}
	}

	if err := w.deps.FS.MkdirAll(t.PendingDirPath(), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryCreate, t.PendingDirPath(), err)
	}
	return nil
}

// Write admits one row in request shape order. When the memtable crosses the
// write buffer threshold, a fresh memtable is swapped in and the superseded
// one is flushed into the builder before Write returns. A flush failure
// surfaces to the caller; subsequent writes land in the new memtable.
func (w *DeltaWriter) Write(ctx context.Context, row model.Row) error {
	if err := w.ensureInit(ctx); err != nil {
		return err
	}

	if err := w.mem.Insert(row); err != nil {
		return fmt.Errorf("%w: %w", ErrColumnMismatch, err)
	}

	if w.mem.MemoryUsage() >= w.opts.writeBufferSize {
		old := w.mem
		w.mem = memtable.New(w.tab.Schema(), w.tab.KeyModel(), w.mapping)
		if err := old.Flush(w.builder); err != nil {
			return fmt.Errorf("%w: %w", ErrFlush, err)
		}
		w.logger.Debug("memtable rotated",
			"rows", old.RowCount(),
			"bytes", old.MemoryUsage(),
		)
	}
	return nil
}

// Close finalizes the load: flushes the last memtable, builds the rowset,
// persists its metadata, and, when a migration was detected at init,
// converts the load into the target tablet and persists that rowset's
// metadata too. On success it appends one TabletInfo per tablet written to
// infos and marks the writer committed. Any failure leaves the writer
// uncommitted so Release unwinds every prepared transaction.
func (w *DeltaWriter) Close(ctx context.Context, infos *[]model.TabletInfo) error {
	if err := w.ensureInit(ctx); err != nil {
		return err
	}

	if err := w.mem.Close(w.builder); err != nil {
		return fmt.Errorf("%w: %w", ErrFlush, err)
	}

	rs, err := w.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}
	w.cur = rs

	if err := w.tab.DataDir().Meta().SaveRowsetMeta(rs.ID(), rs.Meta()); err != nil {
		return fmt.Errorf("%w: rowset %d: %w", ErrPersist, rs.ID(), err)
	}

	if w.related != nil {
		if err := w.closeRelated(ctx, rs); err != nil {
			return err
		}
	}

	if infos != nil {
		*infos = append(*infos, model.TabletInfo{TabletID: w.tab.ID(), SchemaHash: w.tab.SchemaHash()})
		if w.related != nil {
			*infos = append(*infos, model.TabletInfo{TabletID: w.related.ID(), SchemaHash: w.related.SchemaHash()})
		}
	}

	w.committed = true
	w.logger.Info("load closed",
		"rowset_id", uint64(rs.ID()),
		"rows", rs.RowCount(),
		"dual_write", w.related != nil,
	)
	return nil
}

// closeRelated duplicates the finalized rowset into the migration target.
func (w *DeltaWriter) closeRelated(ctx context.Context, rs *rowset.Rowset) error {
	related := w.related

	if err := func() error {
		mu := related.PushLock()
		mu.Lock()
		defer mu.Unlock()
		return w.deps.FS.MkdirAll(related.PendingDirPath(), 0o755)
	}(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryCreate, related.PendingDirPath(), err)
	}

	if w.deps.Converter == nil {
		return fmt.Errorf("%w: no converter configured", ErrSchemaChange)
	}
	converted, err := w.deps.Converter.Convert(ctx, w.tab, related, rs)
	if err != nil {
		return fmt.Errorf("%w: tablet %s: %w", ErrSchemaChange, related.FullName(), err)
	}
	w.relatedRowset = converted

	if err := related.DataDir().Meta().SaveRowsetMeta(converted.ID(), converted.Meta()); err != nil {
		return fmt.Errorf("%w: rowset %d: %w", ErrPersist, converted.ID(), err)
	}
	return nil
}

// Cancel abandons a writer before initialization has taken effect. Once
// initialization has registered anything, even when it then failed partway
// (the transaction is prepared before the column mapping is checked), the
// only valid abandonment is Release without Close, and Cancel returns
// ErrCancelAfterInit.
func (w *DeltaWriter) Cancel() error {
	if w.initialized || w.prepared {
		return ErrCancelAfterInit
	}
	return nil
}

// Release tears the writer down. It runs at most once and is safe to call
// whether or not initialization ever completed. If the load did not commit,
// every prepared transaction is deleted from the registry and every built
// rowset is handed to the collector; bytes are never removed synchronously.
func (w *DeltaWriter) Release() {
	if w.released {
		return
	}
	w.released = true

	if w.committed {
		return
	}

	if w.prepared {
		if err := w.deps.Txns.Delete(w.req.PartitionID, w.req.TxnID, w.req.TabletID, w.req.SchemaHash); err != nil {
			w.logger.Warn("delete txn failed", "error", err)
		}
		if w.cur != nil && w.deps.Collector != nil {
			w.deps.Collector.AddUnused(w.cur)
		}
	}
	if w.relatedPrepared {
		if err := w.deps.Txns.Delete(w.req.PartitionID, w.req.TxnID, w.related.ID(), w.related.SchemaHash()); err != nil {
			w.logger.Warn("delete txn failed",
				"related_tablet", w.related.FullName(),
				"error", err,
			)
		}
		if w.relatedRowset != nil && w.deps.Collector != nil {
			w.deps.Collector.AddUnused(w.relatedRowset)
		}
	}
	if w.prepared {
		w.logger.Info("uncommitted load unwound", "dual_write", w.relatedPrepared)
	}
}
