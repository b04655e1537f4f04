// Package store implements the Table Store (spec.md §4.5): one directory
// per table under the database root, holding a fixed-width row file named
// "data" and a small metadata file named "meta" that records the column
// schema and the index's ghost (free) list. On restart both are read back
// from meta; the hash index itself is rebuilt by one scan of the data file.
package store

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/codec"
	"github.com/bongodb/bongo/internal/index"
	"github.com/bongodb/bongo/internal/ir"
)

const (
	dataFileName = "data"
	metaFileName = "meta"
)

// Loaded is everything store.Load recovers for one table directory.
type Loaded struct {
	Columns []ir.ColumnDef
	Index   *index.Index
	RowSize int
}

// TableDir returns the on-disk directory for a table under root.
func TableDir(root, table string) string {
	return filepath.Join(root, table)
}

// Create makes a fresh, empty table directory and writes its initial meta
// file. The first column is the one the in-memory hash index is built
// over, per spec.md §4.4.
func Create(root, table string, cols []ir.ColumnDef) error {
	dir := TableDir(root, table)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return bongoerr.WriteFile("creating table directory %s: %s", dir, err)
	}
	if err := writeMeta(dir, cols, nil); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, dataFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return bongoerr.WriteFile("creating data file for %s: %s", table, err)
	}
	return f.Close()
}

// Drop removes a table's entire on-disk directory.
func Drop(root, table string) error {
	if err := os.RemoveAll(TableDir(root, table)); err != nil {
		return bongoerr.WriteFile("dropping table %s: %s", table, err)
	}
	return nil
}

// ListTables returns the names of every table directory under root.
func ListTables(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, bongoerr.ReadFile("listing database root %s: %s", root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Load reads a table's meta file and rebuilds its in-memory index by
// scanning the data file once for occupied and ghost slots.
func Load(root, table string) (*Loaded, error) {
	dir := TableDir(root, table)
	cols, ghosts, err := readMeta(dir)
	if err != nil {
		return nil, err
	}
	rowSize := codec.RowSize(cols)

	idx := index.New()
	for _, g := range ghosts {
		idx.PushGhost(g)
	}

	data, err := os.ReadFile(filepath.Join(dir, dataFileName))
	if err != nil {
		return nil, bongoerr.ReadFile("reading data file for %s: %s", table, err)
	}

	ghostSet := make(map[uint64]bool, len(ghosts))
	for _, g := range ghosts {
		ghostSet[g] = true
	}

	for off := uint64(0); int(off)+rowSize <= len(data); off += uint64(rowSize) {
		if ghostSet[off] {
			continue
		}
		row, err := codec.DecodeRow(cols, data[off:int(off)+rowSize])
		if err != nil {
			return nil, err
		}
		idx.Put(row[0], off)
	}

	return &Loaded{Columns: cols, Index: idx, RowSize: rowSize}, nil
}

// ReadRow reads the row at offset directly from the data file.
func ReadRow(root, table string, cols []ir.ColumnDef, offset uint64) (ir.Row, error) {
	f, err := os.Open(filepath.Join(TableDir(root, table), dataFileName))
	if err != nil {
		return nil, bongoerr.ReadFile("opening data file for %s: %s", table, err)
	}
	defer f.Close()

	size := codec.RowSize(cols)
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return nil, bongoerr.ReadFile("reading row of %s at offset %d: %s", table, offset, err)
	}
	return codec.DecodeRow(cols, buf)
}

// WriteRow writes an encoded row at offset, growing the file if offset is
// past its current end.
func WriteRow(root, table string, cols []ir.ColumnDef, offset uint64, row ir.Row) error {
	buf, err := codec.EncodeRow(cols, row)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(TableDir(root, table), dataFileName), os.O_RDWR, 0o644)
	if err != nil {
		return bongoerr.WriteFile("opening data file for %s: %s", table, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(buf, int64(offset)); err != nil {
		return bongoerr.WriteFile("writing row of %s at offset %d: %s", table, offset, err)
	}
	return nil
}

// EraseRow overwrites a deleted row's bytes with zeros so a restart's meta
// scan (which trusts the ghost list, not the bytes) never depends on stale
// payload contents.
func EraseRow(root, table string, rowSize int, offset uint64) error {
	f, err := os.OpenFile(filepath.Join(TableDir(root, table), dataFileName), os.O_RDWR, 0o644)
	if err != nil {
		return bongoerr.WriteFile("opening data file for %s: %s", table, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(make([]byte, rowSize), int64(offset)); err != nil {
		return bongoerr.WriteFile("erasing row of %s at offset %d: %s", table, offset, err)
	}
	return nil
}

// DataFileSize returns the current size of a table's row file.
func DataFileSize(root, table string) (uint64, error) {
	info, err := os.Stat(filepath.Join(TableDir(root, table), dataFileName))
	if err != nil {
		return 0, bongoerr.ReadFile("stat data file for %s: %s", table, err)
	}
	return uint64(info.Size()), nil
}

// Flush persists the table's current ghost list to its meta file. The row
// data itself is always written through immediately (WriteRow/EraseRow), so
// flush only needs to durably record the free list — matching spec.md §4.5's
// "flush" as a checkpoint of bookkeeping, not of row contents.
func Flush(root, table string, cols []ir.ColumnDef, idx *index.Index) error {
	return writeMeta(TableDir(root, table), cols, idx.Ghosts())
}

func writeMeta(dir string, cols []ir.ColumnDef, ghosts []uint64) error {
	f, err := os.Create(filepath.Join(dir, metaFileName))
	if err != nil {
		return bongoerr.WriteFile("writing meta file: %s", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.BigEndian, uint32(len(cols))); err != nil {
		return bongoerr.WriteFile("writing column count: %s", err)
	}
	for _, c := range cols {
		if err := writeColumnDef(w, c); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(ghosts))); err != nil {
		return bongoerr.WriteFile("writing ghost count: %s", err)
	}
	for _, g := range ghosts {
		if err := binary.Write(w, binary.BigEndian, g); err != nil {
			return bongoerr.WriteFile("writing ghost offset: %s", err)
		}
	}
	if err := w.Flush(); err != nil {
		return bongoerr.WriteFile("flushing meta file: %s", err)
	}
	return nil
}

func writeColumnDef(w *bufio.Writer, c ir.ColumnDef) error {
	name := []byte(c.Name)
	if err := binary.Write(w, binary.BigEndian, uint32(len(name))); err != nil {
		return bongoerr.WriteFile("writing column name length: %s", err)
	}
	if _, err := w.Write(name); err != nil {
		return bongoerr.WriteFile("writing column name: %s", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint8(c.Type.Kind())); err != nil {
		return bongoerr.WriteFile("writing column kind: %s", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(c.Type.Cap())); err != nil {
		return bongoerr.WriteFile("writing column capacity: %s", err)
	}
	return nil
}

func readMeta(dir string) ([]ir.ColumnDef, []uint64, error) {
	f, err := os.Open(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, nil, bongoerr.ReadFile("reading meta file: %s", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var nCols uint32
	if err := binary.Read(r, binary.BigEndian, &nCols); err != nil {
		return nil, nil, bongoerr.Deserializer()
	}
	cols := make([]ir.ColumnDef, nCols)
	for i := range cols {
		c, err := readColumnDef(r)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = c
	}

	var nGhosts uint32
	if err := binary.Read(r, binary.BigEndian, &nGhosts); err != nil {
		return nil, nil, bongoerr.Deserializer()
	}
	ghosts := make([]uint64, nGhosts)
	for i := range ghosts {
		if err := binary.Read(r, binary.BigEndian, &ghosts[i]); err != nil {
			return nil, nil, bongoerr.Deserializer()
		}
	}
	return cols, ghosts, nil
}

func readColumnDef(r *bufio.Reader) (ir.ColumnDef, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
		return ir.ColumnDef{}, bongoerr.Deserializer()
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return ir.ColumnDef{}, bongoerr.Deserializer()
	}
	var kind uint8
	if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
		return ir.ColumnDef{}, bongoerr.Deserializer()
	}
	var cap32 uint32
	if err := binary.Read(r, binary.BigEndian, &cap32); err != nil {
		return ir.ColumnDef{}, bongoerr.Deserializer()
	}

	var dt ir.DataType
	switch ir.DataTypeKind(kind) {
	case ir.TypeInt:
		dt = ir.IntType()
	case ir.TypeBool:
		dt = ir.BoolType()
	case ir.TypeVarchar:
		dt = ir.VarcharType(int(cap32))
	default:
		return ir.ColumnDef{}, bongoerr.Deserializer()
	}
	return ir.ColumnDef{Name: string(name), Type: dt}, nil
}
