package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
	"github.com/bongodb/bongo/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(Options{Root: t.TempDir(), CreateRoot: true})
	require.NoError(t, err)
	return eng
}

func createUsers(t *testing.T, eng *Engine) {
	t.Helper()
	_, _, err := eng.Execute(&ir.Statement{CreateTable: &ir.CreateTable{
		Table: "users",
		Cols: []ir.ColumnDef{
			{Name: "id", Type: ir.IntType()},
			{Name: "name", Type: ir.VarcharType(16)},
		},
	}})
	require.NoError(t, err)
}

func TestCreateInsertWildcardSelect(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)

	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(1), ir.Varchar("alice")}, {ir.Int(2), ir.Varchar("bob")}},
	}})
	require.NoError(t, err)

	_, rows, err := eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
	}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestIndexedEqualityProbe(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(1), ir.Varchar("alice")}, {ir.Int(2), ir.Varchar("bob")}},
	}})
	require.NoError(t, err)

	_, rows, err := eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
		Where: ir.Binary(ir.Identifier("id"), ir.OpEq, ir.Value(ir.Int(2))),
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0][1].Equal(ir.Varchar("bob")))
}

func TestUpdateIndexedColumnMovesIndexEntry(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(1), ir.Varchar("alice")}},
	}})
	require.NoError(t, err)

	_, _, err = eng.Execute(&ir.Statement{Update: &ir.Update{
		Table: "users",
		Sets:  []ir.Assignment{{Column: "id", Value: ir.Int(99)}},
		Where: ir.Binary(ir.Identifier("id"), ir.OpEq, ir.Value(ir.Int(1))),
	}})
	require.NoError(t, err)

	_, rows, err := eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
		Where: ir.Binary(ir.Identifier("id"), ir.OpEq, ir.Value(ir.Int(99))),
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, rows, err = eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
		Where: ir.Binary(ir.Identifier("id"), ir.OpEq, ir.Value(ir.Int(1))),
	}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteThenInsertReusesGhostSlot(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(1), ir.Varchar("alice")}},
	}})
	require.NoError(t, err)

	_, _, err = eng.Execute(&ir.Statement{Delete: &ir.Delete{
		Table: "users",
		Where: ir.Binary(ir.Identifier("id"), ir.OpEq, ir.Value(ir.Int(1))),
	}})
	require.NoError(t, err)

	sizeBefore, err := dataFileSize(eng, "users")
	require.NoError(t, err)

	_, _, err = eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(2), ir.Varchar("carol")}},
	}})
	require.NoError(t, err)

	sizeAfter, err := dataFileSize(eng, "users")
	require.NoError(t, err)
	assert.Equal(t, sizeBefore, sizeAfter, "insert after delete should reuse the ghost slot, not grow the file")
}

func TestPersistenceAcrossRestart(t *testing.T) {
	root := t.TempDir()
	eng, err := New(Options{Root: root, CreateRoot: true})
	require.NoError(t, err)
	createUsers(t, eng)
	_, _, err = eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Rows:  []ir.Row{{ir.Int(1), ir.Varchar("alice")}},
	}})
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	reopened, err := New(Options{Root: root})
	require.NoError(t, err)
	_, rows, err := reopened.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0][1].Equal(ir.Varchar("alice")))
}

func TestSelectFromUnknownTableIsSqlRuntimeError(t *testing.T) {
	eng := newTestEngine(t)
	_, _, err := eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "ghost_town",
	}})
	require.Error(t, err)
	be, ok := err.(*bongoerr.Error)
	require.True(t, ok)
	assert.Equal(t, bongoerr.KindSqlRuntime, be.Kind)
}

func TestInsertRejectsReorderedColumnList(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Cols:  []string{"name", "id"},
		Rows:  []ir.Row{{ir.Varchar("alice"), ir.Int(1)}},
	}})
	require.Error(t, err)
	be, ok := err.(*bongoerr.Error)
	require.True(t, ok)
	assert.Equal(t, bongoerr.KindSqlRuntime, be.Kind)
}

func TestInsertRejectsPartialColumnList(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{Insert: &ir.Insert{
		Table: "users",
		Cols:  []string{"id"},
		Rows:  []ir.Row{{ir.Int(1)}},
	}})
	require.Error(t, err)
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{CreateTable: &ir.CreateTable{
		Table: "users",
		Cols:  []ir.ColumnDef{{Name: "id", Type: ir.IntType()}},
	}})
	assert.Error(t, err)
}

func TestDropTableRemovesItEntirely(t *testing.T) {
	eng := newTestEngine(t)
	createUsers(t, eng)
	_, _, err := eng.Execute(&ir.Statement{DropTable: &ir.DropTable{Tables: []string{"users"}}})
	require.NoError(t, err)

	_, _, err = eng.Execute(&ir.Statement{Select: &ir.Select{
		Cols:  []ir.SelectItem{{Wildcard: true}},
		Table: "users",
	}})
	assert.Error(t, err)
}

func dataFileSize(eng *Engine, table string) (uint64, error) {
	return store.DataFileSize(eng.root, table)
}
