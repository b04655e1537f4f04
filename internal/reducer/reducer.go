// Package reducer turns a permissive SQL surface into the engine's own
// typed statement IR (spec.md §4.2), dispatching on a TiDB ast.StmtNode's
// concrete type exactly the way the teacher's mysql.Parser.Parse dispatches
// on ast.CreateTableStmt — generalized here to SELECT/INSERT/UPDATE/DELETE/
// DROP TABLE in addition to CREATE TABLE.
package reducer

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
)

// Reducer wraps a TiDB SQL parser and reduces its AST to ir.Statement.
type Reducer struct {
	p *parser.Parser
}

func New() *Reducer {
	return &Reducer{p: parser.New()}
}

// Reduce turns one SQL statement string into the engine's IR. An empty (or
// all-whitespace) statement reduces to EmptySqlStatementError. The literal
// "flush" (case-insensitive, optional trailing semicolon and whitespace) is
// recognized before the SQL parser ever sees it, per spec.md §4.2.
func (r *Reducer) Reduce(sql string) (*ir.Statement, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, bongoerr.EmptySqlStatement()
	}
	if isFlush(trimmed) {
		return &ir.Statement{Flush: true}, nil
	}

	stmtNodes, _, err := r.p.Parse(sql, "", "")
	if err != nil {
		return nil, bongoerr.SqlSyntax("%s", err)
	}
	if len(stmtNodes) == 0 {
		return nil, bongoerr.EmptySqlStatement()
	}
	if len(stmtNodes) > 1 {
		return nil, bongoerr.UnsupportedFeature("multiple statements in one request")
	}

	return reduceStmt(stmtNodes[0])
}

func isFlush(trimmed string) bool {
	s := strings.TrimSuffix(trimmed, ";")
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "flush")
}

func reduceStmt(node ast.StmtNode) (*ir.Statement, error) {
	switch stmt := node.(type) {
	case *ast.SelectStmt:
		sel, err := reduceSelect(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{Select: sel}, nil
	case *ast.InsertStmt:
		ins, err := reduceInsert(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{Insert: ins}, nil
	case *ast.UpdateStmt:
		upd, err := reduceUpdate(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{Update: upd}, nil
	case *ast.DeleteStmt:
		del, err := reduceDelete(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{Delete: del}, nil
	case *ast.CreateTableStmt:
		ct, err := reduceCreateTable(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{CreateTable: ct}, nil
	case *ast.DropTableStmt:
		dt, err := reduceDropTable(stmt)
		if err != nil {
			return nil, err
		}
		return &ir.Statement{DropTable: dt}, nil
	case *ast.CreateDatabaseStmt, *ast.DropDatabaseStmt:
		return nil, bongoerr.UnsupportedFeature("CREATE DATABASE / DROP DATABASE are not supported")
	default:
		return nil, bongoerr.UnsupportedFeature("unsupported statement type: %T", node)
	}
}

func singleTableName(refs *ast.TableRefsClause) (string, error) {
	if refs == nil || refs.TableRefs == nil {
		return "", bongoerr.SqlSyntax("missing FROM clause")
	}
	join := refs.TableRefs
	if join.Right != nil {
		return "", bongoerr.UnsupportedFeature("joins are not supported")
	}
	src, ok := join.Left.(*ast.TableSource)
	if !ok {
		return "", bongoerr.UnsupportedFeature("only a single named table is supported in FROM")
	}
	name, ok := src.Source.(*ast.TableName)
	if !ok {
		return "", bongoerr.UnsupportedFeature("subqueries are not supported in FROM")
	}
	return name.Name.O, nil
}

func reduceSelect(stmt *ast.SelectStmt) (*ir.Select, error) {
	table, err := singleTableName(stmt.From)
	if err != nil {
		return nil, err
	}

	items, err := reduceSelectFields(stmt.Fields)
	if err != nil {
		return nil, err
	}

	var where *ir.Expr
	if stmt.Where != nil {
		where, err = reduceExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
	}

	var order *ir.Order
	if stmt.OrderBy != nil {
		order, err = reduceOrderBy(stmt.OrderBy)
		if err != nil {
			return nil, err
		}
	}

	return &ir.Select{Cols: items, Table: table, Where: where, Order: order}, nil
}

func reduceSelectFields(fields *ast.FieldList) ([]ir.SelectItem, error) {
	if fields == nil || len(fields.Fields) == 0 {
		return nil, bongoerr.SqlSyntax("empty select list")
	}
	if len(fields.Fields) == 1 && fields.Fields[0].WildCard != nil {
		if fields.Fields[0].WildCard.Table.O != "" {
			return nil, bongoerr.UnsupportedFeature("qualified wildcard is not supported")
		}
		return []ir.SelectItem{{Wildcard: true}}, nil
	}

	items := make([]ir.SelectItem, 0, len(fields.Fields))
	for _, f := range fields.Fields {
		if f.WildCard != nil {
			return nil, bongoerr.UnsupportedFeature("wildcard cannot be mixed with named columns")
		}
		col, ok := f.Expr.(*ast.ColumnNameExpr)
		if !ok {
			return nil, bongoerr.UnsupportedFeature("only plain column projections are supported")
		}
		items = append(items, ir.SelectItem{Name: col.Name.Name.O})
	}
	return items, nil
}

func reduceOrderBy(ob *ast.OrderByClause) (*ir.Order, error) {
	if len(ob.Items) != 1 {
		return nil, bongoerr.UnsupportedFeature("ORDER BY supports exactly one column")
	}
	item := ob.Items[0]
	col, ok := item.Expr.(*ast.ColumnNameExpr)
	if !ok {
		return nil, bongoerr.UnsupportedFeature("ORDER BY target must be a column")
	}
	dir := ir.Asc
	if item.Desc {
		dir = ir.Desc
	}
	return &ir.Order{Column: col.Name.Name.O, Dir: dir}, nil
}

func reduceInsert(stmt *ast.InsertStmt) (*ir.Insert, error) {
	table, err := singleTableName(stmt.Table)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(stmt.Columns))
	for _, c := range stmt.Columns {
		cols = append(cols, c.Name.O)
	}

	rows := make([]ir.Row, 0, len(stmt.Lists))
	for _, list := range stmt.Lists {
		row := make(ir.Row, 0, len(list))
		for _, expr := range list {
			lit, err := reduceLiteral(expr)
			if err != nil {
				return nil, err
			}
			row = append(row, lit)
		}
		rows = append(rows, row)
	}

	return &ir.Insert{Table: table, Cols: cols, Rows: rows}, nil
}

func reduceUpdate(stmt *ast.UpdateStmt) (*ir.Update, error) {
	table, err := singleTableName(stmt.TableRefs)
	if err != nil {
		return nil, err
	}

	sets := make([]ir.Assignment, 0, len(stmt.List))
	for _, a := range stmt.List {
		lit, err := reduceLiteral(a.Expr)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ir.Assignment{Column: a.Column.Name.O, Value: lit})
	}

	var where *ir.Expr
	if stmt.Where != nil {
		where, err = reduceExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
	}

	return &ir.Update{Table: table, Sets: sets, Where: where}, nil
}

func reduceDelete(stmt *ast.DeleteStmt) (*ir.Delete, error) {
	table, err := singleTableName(stmt.TableRefs)
	if err != nil {
		return nil, err
	}
	var where *ir.Expr
	if stmt.Where != nil {
		where, err = reduceExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
	}
	return &ir.Delete{Table: table, Where: where}, nil
}

func reduceCreateTable(stmt *ast.CreateTableStmt) (*ir.CreateTable, error) {
	cols := make([]ir.ColumnDef, 0, len(stmt.Cols))
	for _, c := range stmt.Cols {
		dt, err := reduceDataType(c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ir.ColumnDef{Name: c.Name.Name.O, Type: dt})
	}
	return &ir.CreateTable{Table: stmt.Table.Name.O, Cols: cols}, nil
}

func reduceDataType(col *ast.ColumnDef) (ir.DataType, error) {
	typeName := strings.ToUpper(col.Tp.String())
	base := typeName
	if i := strings.IndexByte(typeName, '('); i >= 0 {
		base = typeName[:i]
	}

	switch {
	case base == "INT" || base == "BIGINT" || base == "INTEGER":
		return ir.IntType(), nil
	case base == "BOOL" || base == "BOOLEAN" || base == "TINYINT":
		return ir.BoolType(), nil
	case base == "VARCHAR" || base == "CHAR":
		flen := col.Tp.GetFlen()
		if flen <= 0 {
			return ir.DataType{}, bongoerr.UnsupportedFeature("VARCHAR requires an explicit size")
		}
		return ir.VarcharType(flen), nil
	default:
		return ir.DataType{}, bongoerr.UnsupportedFeature("unsupported column type: %s", typeName)
	}
}

func reduceDropTable(stmt *ast.DropTableStmt) (*ir.DropTable, error) {
	names := make([]string, 0, len(stmt.Tables))
	for _, t := range stmt.Tables {
		names = append(names, t.Name.O)
	}
	return &ir.DropTable{Tables: names}, nil
}

func reduceExpr(node ast.ExprNode) (*ir.Expr, error) {
	switch e := node.(type) {
	case *ast.ColumnNameExpr:
		return ir.Identifier(e.Name.Name.O), nil
	case *ast.ParenthesesExpr:
		return reduceExpr(e.Expr)
	case *ast.BinaryOperationExpr:
		left, err := reduceExpr(e.L)
		if err != nil {
			return nil, err
		}
		right, err := reduceExpr(e.R)
		if err != nil {
			return nil, err
		}
		op, err := reduceOp(e.Op)
		if err != nil {
			return nil, err
		}
		return ir.Binary(left, op, right), nil
	default:
		lit, err := reduceLiteral(node)
		if err != nil {
			return nil, bongoerr.UnsupportedFeature("unsupported expression form: %T", node)
		}
		return ir.Value(lit), nil
	}
}

func reduceOp(op opcode.Op) (ir.BinOp, error) {
	switch op {
	case opcode.EQ:
		return ir.OpEq, nil
	case opcode.NE:
		return ir.OpNotEq, nil
	case opcode.LT:
		return ir.OpLt, nil
	case opcode.LE:
		return ir.OpLtEq, nil
	case opcode.GT:
		return ir.OpGt, nil
	case opcode.GE:
		return ir.OpGtEq, nil
	case opcode.LogicAnd:
		return ir.OpAnd, nil
	case opcode.LogicOr:
		return ir.OpOr, nil
	default:
		return 0, bongoerr.UnsupportedFeature("unsupported operator: %v", op)
	}
}

// reduceLiteral reduces a TiDB value expression (via its test_driver
// companion, which adapts types.Datum literals into ast.ValueExpr) to an
// ir.Literal. Only the four literal kinds spec.md §3 names are accepted.
func reduceLiteral(node ast.ExprNode) (ir.Literal, error) {
	val, ok := node.(ast.ValueExpr)
	if !ok {
		return ir.Literal{}, bongoerr.UnsupportedFeature("expected a literal value, found %T", node)
	}
	datum := val.GetValue()
	switch v := datum.(type) {
	case nil:
		return ir.Null(), nil
	case bool:
		return ir.Bool(v), nil
	case int64:
		return ir.Int(v), nil
	case uint64:
		return ir.Int(int64(v)), nil
	case string:
		return ir.Varchar(v), nil
	case []byte:
		return ir.Varchar(string(v)), nil
	default:
		return ir.Literal{}, bongoerr.UnsupportedFeature("unsupported literal kind: %T", datum)
	}
}
