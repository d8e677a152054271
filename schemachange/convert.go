// Package schemachange converts a finalized rowset into the schema of a
// migration's target tablet. The write coordinator drives when conversion
// happens; this package owns only the row transformation.
package schemachange

import (
	"context"
	"fmt"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
	"github.com/hupe1980/tabletio/tablet"
)

// Converter replicates a rowset written against `from` into the schema of
// `to`, producing a new rowset pending under the target tablet.
type Converter interface {
	Convert(ctx context.Context, from, to *tablet.Tablet, rs *rowset.Rowset) (*rowset.Rowset, error)
}

// NameConverter maps columns by name. Target columns absent from the source
// schema are filled with nulls; source columns absent from the target are
// dropped. Type coercion beyond identity is out of scope.
type NameConverter struct {
	fs fsys.FileSystem
}

// NewNameConverter creates a converter. A nil fs uses the local file system.
func NewNameConverter(fs fsys.FileSystem) *NameConverter {
	if fs == nil {
		fs = fsys.Default
	}
	return &NameConverter{fs: fs}
}

// Convert builds the target-schema twin of rs. The new rowset id comes from
// the target tablet's data dir and the segment lands in the target's pending
// dir, mirroring the primary write.
func (c *NameConverter) Convert(ctx context.Context, from, to *tablet.Tablet, rs *rowset.Rowset) (*rowset.Rowset, error) {
	srcSchema := from.Schema()
	dstSchema := to.Schema()

	// dst column -> src column, -1 when the target column is new.
	mapping := make([]int, dstSchema.NumColumns())
	for i := range mapping {
		mapping[i] = srcSchema.ColumnIndex(dstSchema.Column(i).Name)
	}

	id, err := to.DataDir().IDs().NextID()
	if err != nil {
		return nil, fmt.Errorf("allocate rowset id for tablet %s: %w", to.FullName(), err)
	}

	srcMeta := rs.Meta()
	builder, err := rowset.NewBuilder(rowset.BuilderContext{
		RowsetID:    id,
		TabletID:    to.ID(),
		PartitionID: srcMeta.PartitionID,
		SchemaHash:  to.SchemaHash(),
		TxnID:       srcMeta.TxnID,
		LoadID:      srcMeta.LoadID,
		PathPrefix:  to.PendingDirPath(),
		Schema:      dstSchema,
	}, c.fs)
	if err != nil {
		return nil, err
	}

	converted := make([]model.Row, 0, rs.RowCount())
	err = rs.Iterate(func(row model.Row) error {
		rec := make(model.Row, len(mapping))
		for i, src := range mapping {
			if src < 0 {
				rec[i] = model.Null()
				continue
			}
			rec[i] = row[src]
		}
		converted = append(converted, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := builder.AppendBatch(converted); err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}

var _ Converter = (*NameConverter)(nil)
