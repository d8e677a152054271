package schemachange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/model"
	"github.com/hupe1980/tabletio/rowset"
	"github.com/hupe1980/tabletio/schema"
	"github.com/hupe1980/tabletio/tablet"
)

func TestNameConverter(t *testing.T) {
	dir, err := tablet.OpenDataDir(nil, t.TempDir())
	require.NoError(t, err)
	defer dir.Close()

	oldSchema, err := schema.New(
		schema.Column{Name: "k", Kind: model.KindInt, Key: true},
		schema.Column{Name: "v", Kind: model.KindString},
		schema.Column{Name: "dropped", Kind: model.KindInt},
	)
	require.NoError(t, err)

	// Target keeps k, renames nothing, drops "dropped" and adds "added".
	newSchema, err := schema.New(
		schema.Column{Name: "k", Kind: model.KindInt, Key: true},
		schema.Column{Name: "added", Kind: model.KindFloat},
		schema.Column{Name: "v", Kind: model.KindString},
	)
	require.NoError(t, err)

	from := tablet.New(100, 42, oldSchema, model.DupKeys, dir)
	to := tablet.New(101, 43, newSchema, model.DupKeys, dir)

	srcID, err := dir.IDs().NextID()
	require.NoError(t, err)
	b, err := rowset.NewBuilder(rowset.BuilderContext{
		RowsetID:    srcID,
		TabletID:    from.ID(),
		PartitionID: 1,
		SchemaHash:  from.SchemaHash(),
		TxnID:       9,
		LoadID:      "load-1",
		PathPrefix:  t.TempDir(),
		Schema:      oldSchema,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.AppendBatch([]model.Row{
		{model.Int(1), model.String("one"), model.Int(-1)},
		{model.Int(2), model.String("two"), model.Int(-2)},
	}))
	src, err := b.Build(context.Background())
	require.NoError(t, err)

	// The coordinator creates the target pending dir before converting.
	require.NoError(t, fsys.Default.MkdirAll(to.PendingDirPath(), 0o755))

	got, err := NewNameConverter(nil).Convert(context.Background(), from, to, src)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID(), got.ID())
	assert.Equal(t, to.ID(), got.Meta().TabletID)
	assert.Equal(t, to.SchemaHash(), got.Meta().SchemaHash)
	assert.Equal(t, src.Meta().TxnID, got.Meta().TxnID)
	assert.Equal(t, src.Meta().LoadID, got.Meta().LoadID)
	assert.Equal(t, 2, got.RowCount())

	var rows []model.Row
	require.NoError(t, got.Iterate(func(row model.Row) error {
		rows = append(rows, row)
		return nil
	}))
	require.Len(t, rows, 2)

	// k carried over, "added" nulled, v carried over, "dropped" gone.
	assert.Equal(t, model.Row{model.Int(1), model.Null(), model.String("one")}, rows[0])
	assert.Equal(t, model.Row{model.Int(2), model.Null(), model.String("two")}, rows[1])
}
