package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongodb/bongo/internal/ir"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cols := []ir.ColumnDef{
		{Name: "id", Type: ir.IntType()},
		{Name: "name", Type: ir.VarcharType(8)},
	}
	require.NoError(t, Create(root, "users", cols))

	row := ir.Row{ir.Int(7), ir.Varchar("zoe")}
	require.NoError(t, WriteRow(root, "users", cols, 0, row))

	got, err := ReadRow(root, "users", cols, 0)
	require.NoError(t, err)
	assert.True(t, got[0].Equal(ir.Int(7)))
	assert.True(t, got[1].Equal(ir.Varchar("zoe")))
}

func TestLoadRebuildsIndexFromData(t *testing.T) {
	root := t.TempDir()
	cols := []ir.ColumnDef{{Name: "id", Type: ir.IntType()}}
	require.NoError(t, Create(root, "t", cols))

	rowSize := 9
	require.NoError(t, WriteRow(root, "t", cols, 0, ir.Row{ir.Int(1)}))
	require.NoError(t, WriteRow(root, "t", cols, uint64(rowSize), ir.Row{ir.Int(2)}))

	loaded, err := Load(root, "t")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{0, uint64(rowSize)}, loaded.Index.All())
}

func TestFlushPersistsGhostList(t *testing.T) {
	root := t.TempDir()
	cols := []ir.ColumnDef{{Name: "id", Type: ir.IntType()}}
	require.NoError(t, Create(root, "t", cols))
	require.NoError(t, WriteRow(root, "t", cols, 0, ir.Row{ir.Int(1)}))

	loaded, err := Load(root, "t")
	require.NoError(t, err)
	loaded.Index.Remove(ir.Int(1), 0)

	require.NoError(t, Flush(root, "t", cols, loaded.Index))

	reloaded, err := Load(root, "t")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Index.All())
	_, ok := reloaded.Index.TakeGhost()
	assert.True(t, ok)
}

func TestListTablesOnMissingRoot(t *testing.T) {
	names, err := ListTables("/nonexistent/path/for/sure")
	require.NoError(t, err)
	assert.Empty(t, names)
}
