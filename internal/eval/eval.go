// Package eval implements the Expression Evaluator (spec.md §4.3): a
// recursive evaluation over ir.Expr against a single row, with the
// three-valued-logic collapse happening only at evaluation sites, never in
// storage (internal/codec keeps NULL distinct from false).
package eval

import (
	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
)

// RowBinding resolves a column name to its value in the row under
// evaluation.
type RowBinding interface {
	Column(name string) (ir.Literal, error)
}

// Eval evaluates expr against binding, returning the resulting literal.
// A comparison with a NULL operand evaluates to Bool(false), with one
// documented exception: `NULL = NULL` evaluates to Bool(true). AND/OR treat a
// NULL operand as false. This inconsistency is preserved verbatim from the
// reference implementation's observable behavior rather than "corrected",
// since client code may depend on it.
func Eval(expr *ir.Expr, binding RowBinding) (ir.Literal, error) {
	switch {
	case expr.IsValue():
		return expr.Value(), nil
	case expr.IsIdentifier():
		return binding.Column(expr.Identifier())
	default:
		return evalBinary(expr, binding)
	}
}

func evalBinary(expr *ir.Expr, binding RowBinding) (ir.Literal, error) {
	left, err := Eval(expr.Left(), binding)
	if err != nil {
		return ir.Literal{}, err
	}
	right, err := Eval(expr.Right(), binding)
	if err != nil {
		return ir.Literal{}, err
	}

	switch expr.Op() {
	case ir.OpAnd:
		l, err := collapse(left)
		if err != nil {
			return ir.Literal{}, err
		}
		r, err := collapse(right)
		if err != nil {
			return ir.Literal{}, err
		}
		return ir.Bool(l && r), nil
	case ir.OpOr:
		l, err := collapse(left)
		if err != nil {
			return ir.Literal{}, err
		}
		r, err := collapse(right)
		if err != nil {
			return ir.Literal{}, err
		}
		return ir.Bool(l || r), nil
	case ir.OpEq:
		if left.IsNull() && right.IsNull() {
			return ir.Bool(true), nil
		}
		if left.IsNull() || right.IsNull() {
			return ir.Bool(false), nil
		}
		return ir.Bool(left.Equal(right)), nil
	case ir.OpNotEq:
		if left.IsNull() && right.IsNull() {
			return ir.Bool(false), nil
		}
		if left.IsNull() || right.IsNull() {
			return ir.Bool(false), nil
		}
		return ir.Bool(!left.Equal(right)), nil
	case ir.OpLt, ir.OpLtEq, ir.OpGt, ir.OpGtEq:
		if left.IsNull() || right.IsNull() {
			return ir.Bool(false), nil
		}
		return orderCompare(expr.Op(), left, right)
	default:
		return ir.Literal{}, bongoerr.Internal("unknown operator in expression tree")
	}
}

// collapse implements the NULL-to-false coercion used by AND/OR: a Null
// operand collapses to false, a Bool operand passes through, and any other
// kind is a runtime error — AND/OR operands must both be Bool or Null,
// per spec.md §4.3.
func collapse(lit ir.Literal) (bool, error) {
	if lit.IsNull() {
		return false, nil
	}
	if lit.Kind() == ir.LiteralBool {
		return lit.BoolValue(), nil
	}
	return false, bongoerr.SqlRuntime("AND/OR operand must be Bool or Null, got %s", lit.Kind())
}

func orderCompare(op ir.BinOp, left, right ir.Literal) (ir.Literal, error) {
	if left.Kind() != right.Kind() {
		return ir.Literal{}, bongoerr.SqlRuntime("cannot compare %s to %s", left.Kind(), right.Kind())
	}

	var cmp int
	switch left.Kind() {
	case ir.LiteralInt:
		cmp = compareInt64(left.IntValue(), right.IntValue())
	case ir.LiteralBool:
		cmp = compareBool(left.BoolValue(), right.BoolValue())
	case ir.LiteralVarchar:
		cmp = compareString(left.StringValue(), right.StringValue())
	default:
		return ir.Literal{}, bongoerr.SqlRuntime("type %s does not support ordering", left.Kind())
	}

	switch op {
	case ir.OpLt:
		return ir.Bool(cmp < 0), nil
	case ir.OpLtEq:
		return ir.Bool(cmp <= 0), nil
	case ir.OpGt:
		return ir.Bool(cmp > 0), nil
	case ir.OpGtEq:
		return ir.Bool(cmp >= 0), nil
	default:
		return ir.Literal{}, bongoerr.Internal("unreachable ordering operator")
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Truthy reports whether lit, the result of evaluating a WHERE clause's root
// expression, satisfies the predicate. A Null result collapses to false, per
// spec.md §3's statement-boundary collapse; any other non-Bool result is a
// runtime error, since a predicate's root must evaluate to a boolean verdict.
func Truthy(lit ir.Literal) (bool, error) {
	if lit.IsNull() {
		return false, nil
	}
	if lit.Kind() == ir.LiteralBool {
		return lit.BoolValue(), nil
	}
	return false, bongoerr.SqlRuntime("predicate must evaluate to Bool, got %s", lit.Kind())
}
