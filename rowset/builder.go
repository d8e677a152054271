package rowset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/schema"
)

var (
	// ErrInvalidContext is returned when a builder context is incomplete.
	ErrInvalidContext = errors.New("invalid builder context")

	// ErrAlreadyBuilt is returned when Build is called twice.
	ErrAlreadyBuilt = errors.New("rowset already built")
)

// BuilderContext fixes the identity of the rowset under construction.
type BuilderContext struct {
	RowsetID    model.RowsetID
	TabletID    model.TabletID
	PartitionID model.PartitionID
	SchemaHash  model.SchemaHash
	TxnID       model.TxnID
	LoadID      model.LoadID
	PathPrefix  string
	Schema      *schema.Schema
}

func (c *BuilderContext) validate() error {
	switch {
	case c.RowsetID == 0:
		return fmt.Errorf("%w: rowset id is zero", ErrInvalidContext)
	case c.TabletID == 0:
		return fmt.Errorf("%w: tablet id is zero", ErrInvalidContext)
	case c.PathPrefix == "":
		return fmt.Errorf("%w: path prefix is empty", ErrInvalidContext)
	case c.Schema == nil:
		return fmt.Errorf("%w: schema is nil", ErrInvalidContext)
	}
	return nil
}

// Builder accumulates flushed memtable batches and finalizes them into one
// immutable rowset. Exactly one builder exists per (tablet, transaction).
type Builder struct {
	ctx   BuilderContext
	fs    fsys.FileSystem
	state State

	batches  [][]model.Row
	rowCount int
	dataSize int64
	built    bool
}

// NewBuilder creates a builder in Prepared state.
func NewBuilder(ctx BuilderContext, fs fsys.FileSystem) (*Builder, error) {
	if err := ctx.validate(); err != nil {
		return nil, err
	}
	if fs == nil {
		fs = fsys.Default
	}
	return &Builder{
		ctx:   ctx,
		fs:    fs,
		state: StatePrepared,
	}, nil
}

// RowsetID returns the id of the rowset under construction.
func (b *Builder) RowsetID() model.RowsetID { return b.ctx.RowsetID }

// State returns the builder's lifecycle state.
func (b *Builder) State() State { return b.state }

// AppendBatch adds one flushed batch. The builder takes ownership of rows.
func (b *Builder) AppendBatch(rows []model.Row) error {
	if b.built {
		return ErrAlreadyBuilt
	}
	b.batches = append(b.batches, rows)
	b.rowCount += len(rows)
	for _, r := range rows {
		b.dataSize += r.Size()
	}
	return nil
}

// SegmentPath returns the path the segment file is written to.
func (b *Builder) SegmentPath() string {
	return filepath.Join(b.ctx.PathPrefix, fmt.Sprintf("rowset_%d.seg", b.ctx.RowsetID))
}

// Build writes the segment file and finalizes the rowset. The returned
// rowset is immutable; after a successful Build the builder cannot be
// reused. A failed write leaves the builder in Prepared state with its
// batches intact, so Build may be retried.
func (b *Builder) Build(ctx context.Context) (*Rowset, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := b.SegmentPath()
	size, err := writeSegment(b.fs, path, b.ctx.RowsetID, b.batches, b.rowCount)
	if err != nil {
		return nil, fmt.Errorf("write segment %s: %w", path, err)
	}
	b.built = true
	b.state = StateBuilt

	rs := &Rowset{
		meta: Meta{
			RowsetID:    b.ctx.RowsetID,
			TabletID:    b.ctx.TabletID,
			PartitionID: b.ctx.PartitionID,
			SchemaHash:  b.ctx.SchemaHash,
			TxnID:       b.ctx.TxnID,
			LoadID:      b.ctx.LoadID,
			RowCount:    b.rowCount,
			DataSize:    size,
			State:       StateBuilt,
			Path:        path,
			CreatedUnix: time.Now().Unix(),
		},
		batches: b.batches,
	}
	b.batches = nil
	return rs, nil
}
