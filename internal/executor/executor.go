// Package executor implements the Executor (spec.md §4.6) and the
// concurrency model described in spec.md §5: an outer sync.RWMutex guards
// the table-name-to-*Table map (so CREATE TABLE/DROP TABLE/FLUSH need
// exclusive access while ordinary statements only need a read lock on the
// map), and each *Table embeds its own sync.RWMutex so concurrent SELECTs
// against the same table don't block each other while INSERT/UPDATE/DELETE
// take it exclusively. This mirrors the reference implementation's
// RwLock<HashMap<String, RefCell<RwLock<TableMetaData>>>> layering.
package executor

import (
	"os"
	"sort"
	"sync"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/codec"
	"github.com/bongodb/bongo/internal/eval"
	"github.com/bongodb/bongo/internal/index"
	"github.com/bongodb/bongo/internal/ir"
	"github.com/bongodb/bongo/internal/store"
)

// Table is one table's live in-memory state: its schema, its hash index
// over the first column, and the lock that serializes mutation against it.
type Table struct {
	mu      sync.RWMutex
	name    string
	columns []ir.ColumnDef
	index   *index.Index
	rowSize int
	dirty   bool
}

// Engine owns every table in one database root directory.
type Engine struct {
	mu     sync.RWMutex
	root   string
	tables map[string]*Table

	autoFlush bool
}

// Options configures a new Engine.
type Options struct {
	// Root is the database's root directory on disk.
	Root string
	// CreateRoot creates Root if it does not already exist.
	CreateRoot bool
	// AutoFlush, when true, flushes every table touched by a mutating
	// statement immediately after it runs, instead of waiting for an
	// explicit FLUSH statement.
	AutoFlush bool
}

// New loads every existing table under opts.Root into memory.
func New(opts Options) (*Engine, error) {
	if opts.CreateRoot {
		if err := createRootIfMissing(opts.Root); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(opts.Root); os.IsNotExist(err) {
		return nil, bongoerr.DatabaseNotFound("database root %s does not exist", opts.Root)
	}

	names, err := store.ListTables(opts.Root)
	if err != nil {
		return nil, err
	}

	e := &Engine{root: opts.Root, tables: make(map[string]*Table, len(names)), autoFlush: opts.AutoFlush}
	for _, name := range names {
		loaded, err := store.Load(opts.Root, name)
		if err != nil {
			return nil, err
		}
		e.tables[name] = &Table{
			name:    name,
			columns: loaded.Columns,
			index:   loaded.Index,
			rowSize: loaded.RowSize,
		}
	}
	return e, nil
}

func createRootIfMissing(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return bongoerr.WriteFile("creating database root %s: %s", root, err)
	}
	return nil
}

// Execute dispatches a reduced statement to the matching handler, exactly as
// spec.md §4.6 describes. Every mutating statement flushes the tables it
// touched when the engine was constructed with AutoFlush.
func (e *Engine) Execute(stmt *ir.Statement) (ir.Row, []ir.Row, error) {
	switch {
	case stmt.Select != nil:
		rows, err := e.execSelect(stmt.Select)
		return nil, rows, err
	case stmt.Insert != nil:
		err := e.execInsert(stmt.Insert)
		return nil, nil, e.maybeAutoFlush(err, stmt.Insert.Table)
	case stmt.Update != nil:
		err := e.execUpdate(stmt.Update)
		return nil, nil, e.maybeAutoFlush(err, stmt.Update.Table)
	case stmt.Delete != nil:
		err := e.execDelete(stmt.Delete)
		return nil, nil, e.maybeAutoFlush(err, stmt.Delete.Table)
	case stmt.CreateTable != nil:
		err := e.execCreateTable(stmt.CreateTable)
		return nil, nil, err
	case stmt.DropTable != nil:
		err := e.execDropTable(stmt.DropTable)
		return nil, nil, err
	case stmt.Flush:
		return nil, nil, e.FlushAll()
	default:
		return nil, nil, bongoerr.Internal("empty reduced statement reached the executor")
	}
}

func (e *Engine) maybeAutoFlush(err error, table string) error {
	if err != nil || !e.autoFlush {
		return err
	}
	return e.flushTable(table)
}

// lookupTable takes a read lock on the table map and returns the named
// table. DatabaseNotFoundError is reserved for a missing database root; a
// statement naming a table that doesn't exist is a SqlRuntimeError instead.
func (e *Engine) lookupTable(name string) (*Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tables[name]
	if !ok {
		return nil, bongoerr.SqlRuntime("table does not exist: %s", name)
	}
	return t, nil
}

func (e *Engine) execSelect(sel *ir.Select) ([]ir.Row, error) {
	t, err := e.lookupTable(sel.Table)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	cols, err := resolveProjection(sel.Cols, t.columns)
	if err != nil {
		return nil, err
	}

	offsets, residual, err := planOffsets(sel.Where, t)
	if err != nil {
		return nil, err
	}

	var out []ir.Row
	for _, off := range offsets {
		row, err := store.ReadRow(e.root, t.name, t.columns, off)
		if err != nil {
			return nil, err
		}
		if residual != nil {
			matched, err := evalWhere(residual, t.columns, row)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		out = append(out, projectRow(cols, t.columns, row))
	}

	if sel.Order != nil {
		sortRows(out, cols, t.columns, sel.Order)
	}
	if out == nil {
		out = []ir.Row{}
	}
	return out, nil
}

// planOffsets classifies sel's WHERE clause with the probe planner and
// returns the candidate row offsets plus any residual predicate that still
// needs evaluating per row (nil for ProbeNone/ProbeEquality/ProbeInequality,
// the original predicate for anything the planner couldn't reduce to an
// index lookup).
func planOffsets(where *ir.Expr, t *Table) ([]uint64, *ir.Expr, error) {
	indexedCol := t.columns[0].Name
	plan := index.Classify(where, indexedCol)

	switch plan.Kind {
	case index.ProbeNone:
		return t.index.All(), nil, nil
	case index.ProbeEquality:
		return t.index.Lookup(plan.Value), nil, nil
	case index.ProbeInequality:
		excluded := make(map[uint64]bool)
		for _, off := range t.index.Lookup(plan.Value) {
			excluded[off] = true
		}
		var offs []uint64
		for _, off := range t.index.All() {
			if !excluded[off] {
				offs = append(offs, off)
			}
		}
		return offs, nil, nil
	default:
		return t.index.All(), where, nil
	}
}

func evalWhere(where *ir.Expr, cols []ir.ColumnDef, row ir.Row) (bool, error) {
	result, err := eval.Eval(where, rowBinding{cols: cols, row: row})
	if err != nil {
		return false, err
	}
	return eval.Truthy(result)
}

type rowBinding struct {
	cols []ir.ColumnDef
	row  ir.Row
}

func (b rowBinding) Column(name string) (ir.Literal, error) {
	for i, c := range b.cols {
		if c.Name == name {
			return b.row[i], nil
		}
	}
	return ir.Literal{}, bongoerr.SqlRuntime("unknown column: %s", name)
}

func resolveProjection(items []ir.SelectItem, cols []ir.ColumnDef) ([]int, error) {
	if len(items) == 1 && items[0].Wildcard {
		idxs := make([]int, len(cols))
		for i := range cols {
			idxs[i] = i
		}
		return idxs, nil
	}
	idxs := make([]int, 0, len(items))
	for _, it := range items {
		found := -1
		for i, c := range cols {
			if c.Name == it.Name {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, bongoerr.SqlRuntime("unknown column: %s", it.Name)
		}
		idxs = append(idxs, found)
	}
	return idxs, nil
}

func projectRow(idxs []int, cols []ir.ColumnDef, row ir.Row) ir.Row {
	out := make(ir.Row, len(idxs))
	for i, ci := range idxs {
		out[i] = row[ci]
	}
	return out
}

func sortRows(rows []ir.Row, projectedIdxs []int, cols []ir.ColumnDef, order *ir.Order) {
	colPos := -1
	for i, ci := range projectedIdxs {
		if cols[ci].Name == order.Column {
			colPos = i
			break
		}
	}
	if colPos < 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		less := literalLess(rows[i][colPos], rows[j][colPos])
		if order.Dir == ir.Desc {
			return literalLess(rows[j][colPos], rows[i][colPos])
		}
		return less
	})
}

func literalLess(a, b ir.Literal) bool {
	if a.IsNull() || b.IsNull() {
		return !a.IsNull() && b.IsNull()
	}
	switch a.Kind() {
	case ir.LiteralInt:
		return a.IntValue() < b.IntValue()
	case ir.LiteralBool:
		return !a.BoolValue() && b.BoolValue()
	case ir.LiteralVarchar:
		return a.StringValue() < b.StringValue()
	default:
		return false
	}
}

func (e *Engine) execInsert(ins *ir.Insert) error {
	t, err := e.lookupTable(ins.Table)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, values := range ins.Rows {
		row, err := buildInsertRow(ins.Cols, values, t.columns)
		if err != nil {
			return err
		}
		offset, err := nextOffset(e.root, t)
		if err != nil {
			return err
		}
		if err := store.WriteRow(e.root, t.name, t.columns, offset, row); err != nil {
			return err
		}
		t.index.Put(row[0], offset)
		t.dirty = true
	}
	return nil
}

// nextOffset returns a ghost slot to reuse if the table has one (spec.md
// §4.4's LIFO reuse), else the current end of the data file — WriteAt past
// the current end extends the file, so no separate append path is needed.
func nextOffset(root string, t *Table) (uint64, error) {
	if off, ok := t.index.TakeGhost(); ok {
		return off, nil
	}
	return store.DataFileSize(root, t.name)
}

// buildInsertRow requires the INSERT column list, when given, to name every
// one of the table's columns exactly once and in schema order — spec.md
// §4.6 verifies the provided list equals the table's column names in order,
// rather than accepting any subset or reordering and filling the rest with
// NULL.
func buildInsertRow(insertCols []string, values ir.Row, schema []ir.ColumnDef) (ir.Row, error) {
	if len(insertCols) > 0 {
		if len(insertCols) != len(schema) {
			return nil, bongoerr.SqlRuntime("insert column list has %d columns, table has %d", len(insertCols), len(schema))
		}
		for i, c := range schema {
			if insertCols[i] != c.Name {
				return nil, bongoerr.SqlRuntime("insert column list must match the table's column order exactly, column %d is %s, expected %s", i, insertCols[i], c.Name)
			}
		}
	}

	if len(values) != len(schema) {
		return nil, bongoerr.SqlRuntime("expected %d values, got %d", len(schema), len(values))
	}
	for i, c := range schema {
		if !c.Type.CanStore(values[i]) {
			return nil, bongoerr.SqlRuntime("value for column %s does not match its type", c.Name)
		}
	}
	return values, nil
}

func (e *Engine) execUpdate(upd *ir.Update) error {
	t, err := e.lookupTable(upd.Table)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	offsets, residual, err := planOffsets(upd.Where, t)
	if err != nil {
		return err
	}

	for _, off := range offsets {
		row, err := store.ReadRow(e.root, t.name, t.columns, off)
		if err != nil {
			return err
		}
		if residual != nil {
			matched, err := evalWhere(residual, t.columns, row)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
		}

		updated := append(ir.Row(nil), row...)
		oldKey := row[0]
		for _, set := range upd.Sets {
			pos := -1
			for j, c := range t.columns {
				if c.Name == set.Column {
					pos = j
					break
				}
			}
			if pos < 0 {
				return bongoerr.SqlRuntime("unknown column: %s", set.Column)
			}
			if !t.columns[pos].Type.CanStore(set.Value) {
				return bongoerr.SqlRuntime("value for column %s does not match its type", set.Column)
			}
			updated[pos] = set.Value
		}

		if err := store.WriteRow(e.root, t.name, t.columns, off, updated); err != nil {
			return err
		}
		if !updated[0].Equal(oldKey) {
			t.index.Remove(oldKey, off)
			// Remove also pushes off onto the ghost list, but the row still
			// lives at off, so take that ghost back off again.
			t.index.TakeGhost()
			t.index.Put(updated[0], off)
		}
		t.dirty = true
	}
	return nil
}

func (e *Engine) execDelete(del *ir.Delete) error {
	t, err := e.lookupTable(del.Table)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	offsets, residual, err := planOffsets(del.Where, t)
	if err != nil {
		return err
	}

	for _, off := range offsets {
		row, err := store.ReadRow(e.root, t.name, t.columns, off)
		if err != nil {
			return err
		}
		if residual != nil {
			matched, err := evalWhere(residual, t.columns, row)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
		}
		if err := store.EraseRow(e.root, t.name, t.rowSize, off); err != nil {
			return err
		}
		t.index.Remove(row[0], off)
		t.dirty = true
	}
	return nil
}

func (e *Engine) execCreateTable(ct *ir.CreateTable) error {
	if len(ct.Cols) == 0 {
		return bongoerr.SqlRuntime("table %s must have at least one column", ct.Table)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tables[ct.Table]; exists {
		return bongoerr.SqlRuntime("table already exists: %s", ct.Table)
	}
	if err := store.Create(e.root, ct.Table, ct.Cols); err != nil {
		return err
	}
	e.tables[ct.Table] = &Table{
		name:    ct.Table,
		columns: ct.Cols,
		index:   index.New(),
		rowSize: codec.RowSize(ct.Cols),
	}
	return nil
}

func (e *Engine) execDropTable(dt *ir.DropTable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range dt.Tables {
		if _, ok := e.tables[name]; !ok {
			return bongoerr.SqlRuntime("table does not exist: %s", name)
		}
	}
	for _, name := range dt.Tables {
		if err := store.Drop(e.root, name); err != nil {
			return err
		}
		delete(e.tables, name)
	}
	return nil
}

// FlushAll persists the ghost list of every table that has mutated since
// its last flush, taking the table map's write lock for the duration so no
// CREATE/DROP TABLE races with it, per spec.md §5.
func (e *Engine) FlushAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.tables {
		if err := e.flushTableLocked(name); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) flushTable(name string) error {
	e.mu.RLock()
	t, ok := e.tables[name]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := store.Flush(e.root, t.name, t.columns, t.index); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

func (e *Engine) flushTableLocked(name string) error {
	t := e.tables[name]
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := store.Flush(e.root, t.name, t.columns, t.index); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Close flushes every table before shutdown.
func (e *Engine) Close() error {
	return e.FlushAll()
}
