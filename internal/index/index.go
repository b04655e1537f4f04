// Package index implements the Hash Index & Ghost List (spec.md §4.4): an
// in-memory hash index over a table's first column mapping indexed values
// to row-file byte offsets, plus a free list of deleted-row offsets
// ("ghosts") that insert reuses LIFO before growing the file. It also
// implements the trivial, non-recursive probe planner that classifies a
// WHERE predicate's root node, grounded in the reference implementation's
// TrivialIdxExpr/IndexBinOp/DiscIndexer split.
package index

import "github.com/bongodb/bongo/internal/ir"

// Index maps the indexed column's literal values to the set of row offsets
// holding that value, and tracks reusable slots left by deletions.
type Index struct {
	entries map[string][]uint64
	ghosts  []uint64
}

func New() *Index {
	return &Index{entries: make(map[string][]uint64)}
}

// keyOf builds a collision-free string key for any literal.
func keyOf(lit ir.Literal) string {
	switch lit.Kind() {
	case ir.LiteralInt:
		return "i:" + itoa(lit.IntValue())
	case ir.LiteralBool:
		if lit.BoolValue() {
			return "b:1"
		}
		return "b:0"
	case ir.LiteralVarchar:
		return "s:" + lit.StringValue()
	default:
		return "n:"
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Put records that lit now lives at offset.
func (idx *Index) Put(lit ir.Literal, offset uint64) {
	k := keyOf(lit)
	idx.entries[k] = append(idx.entries[k], offset)
}

// Remove drops the (lit, offset) pair from the index and marks offset as a
// reusable ghost slot.
func (idx *Index) Remove(lit ir.Literal, offset uint64) {
	k := keyOf(lit)
	offs := idx.entries[k]
	for i, o := range offs {
		if o == offset {
			offs = append(offs[:i], offs[i+1:]...)
			break
		}
	}
	if len(offs) == 0 {
		delete(idx.entries, k)
	} else {
		idx.entries[k] = offs
	}
	idx.ghosts = append(idx.ghosts, offset)
}

// Lookup returns every current offset holding lit.
func (idx *Index) Lookup(lit ir.Literal) []uint64 {
	return idx.entries[keyOf(lit)]
}

// All returns every offset currently indexed, across all values.
func (idx *Index) All() []uint64 {
	var out []uint64
	for _, offs := range idx.entries {
		out = append(out, offs...)
	}
	return out
}

// TakeGhost pops a reusable offset left by a prior delete, LIFO, or reports
// false if no ghost slot is available and the row file must grow instead.
func (idx *Index) TakeGhost() (uint64, bool) {
	n := len(idx.ghosts)
	if n == 0 {
		return 0, false
	}
	off := idx.ghosts[n-1]
	idx.ghosts = idx.ghosts[:n-1]
	return off, true
}

// PushGhost records offset as a free slot without touching the entry map,
// used when loading a table's ghost list back from its meta file.
func (idx *Index) PushGhost(offset uint64) {
	idx.ghosts = append(idx.ghosts, offset)
}

// Ghosts returns the current free-list contents in push order (TakeGhost
// pops from the end), for persistence by internal/store.
func (idx *Index) Ghosts() []uint64 {
	return idx.ghosts
}

// ProbeKind classifies the root node of a WHERE predicate for planning.
type ProbeKind int

const (
	// ProbeNone means there is no WHERE clause: every row matches.
	ProbeNone ProbeKind = iota
	// ProbeEquality means the root is `indexed_col = literal`: the index
	// can be consulted directly.
	ProbeEquality
	// ProbeInequality means the root is `indexed_col <> literal`: every
	// row except those at the matching offsets is a candidate.
	ProbeInequality
	// ProbeOtherwise means the predicate does not reduce to a single
	// indexed-column comparison: fall back to a full scan evaluating the
	// predicate against every row.
	ProbeOtherwise
)

// Plan is the result of classifying a WHERE predicate against the indexed
// column's name.
type Plan struct {
	Kind  ProbeKind
	Value ir.Literal
}

// Classify implements the trivial, non-recursive probe planner (spec.md
// §4.4): it inspects only the root node of where, never descending into
// AND/OR subtrees, so `a = 1 AND b = 2` is ProbeOtherwise even though one
// conjunct alone would have probed the index.
func Classify(where *ir.Expr, indexedColumn string) Plan {
	if where == nil {
		return Plan{Kind: ProbeNone}
	}
	if !where.IsBinary() {
		return Plan{Kind: ProbeOtherwise}
	}

	left, right := where.Left(), where.Right()
	var col *ir.Expr
	var val *ir.Expr
	switch {
	case left.IsIdentifier() && right.IsValue():
		col, val = left, right
	case right.IsIdentifier() && left.IsValue():
		col, val = right, left
	default:
		return Plan{Kind: ProbeOtherwise}
	}
	if col.Identifier() != indexedColumn {
		return Plan{Kind: ProbeOtherwise}
	}

	switch where.Op() {
	case ir.OpEq:
		return Plan{Kind: ProbeEquality, Value: val.Value()}
	case ir.OpNotEq:
		return Plan{Kind: ProbeInequality, Value: val.Value()}
	default:
		return Plan{Kind: ProbeOtherwise}
	}
}
