// Package codec implements the fixed-width row encoding described in
// spec.md §4.1: each cell is a one-byte presence flag followed by a
// fixed-size payload, and a row is the concatenation of its cells in
// column order. Disk size per cell is payload_size + 1.
package codec

import (
	"encoding/binary"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
)

const (
	presentByte = 1
	absentByte  = 0

	// varcharTerminator marks the end of a Varchar's UTF-8 payload; bytes
	// after it up to the column's capacity are undefined padding.
	varcharTerminator = 0xFF
)

// EncodeCell appends the fixed-width encoding of lit (which must already be
// known to fit in col, per ir.DataType.CanStore) to dst, returning the
// extended slice.
func EncodeCell(dst []byte, col ir.DataType, lit ir.Literal) ([]byte, error) {
	if !col.CanStore(lit) {
		return nil, bongoerr.Internal("value %v does not fit column type %v", lit, col)
	}
	if lit.IsNull() {
		dst = append(dst, absentByte)
		return append(dst, make([]byte, col.DiskSize()-1)...), nil
	}

	dst = append(dst, presentByte)
	switch col.Kind() {
	case ir.TypeInt:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(lit.IntValue()))
		dst = append(dst, buf[:]...)
	case ir.TypeBool:
		if lit.BoolValue() {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case ir.TypeVarchar:
		s := []byte(lit.StringValue())
		payload := make([]byte, col.Cap()+1)
		copy(payload, s)
		payload[len(s)] = varcharTerminator
		dst = append(dst, payload...)
	default:
		return nil, bongoerr.Internal("unknown column kind")
	}
	return dst, nil
}

// DecodeCell reads one fixed-width cell for col from the front of src,
// returning the literal and the unconsumed remainder of src.
func DecodeCell(src []byte, col ir.DataType) (ir.Literal, []byte, error) {
	size := col.DiskSize()
	if len(src) < size {
		return ir.Literal{}, nil, bongoerr.Deserializer()
	}
	present := src[0] == presentByte
	payload := src[1:size]
	rest := src[size:]

	if !present {
		return ir.Null(), rest, nil
	}

	switch col.Kind() {
	case ir.TypeInt:
		if len(payload) != 8 {
			return ir.Literal{}, nil, bongoerr.Deserializer()
		}
		return ir.Int(int64(binary.BigEndian.Uint64(payload))), rest, nil
	case ir.TypeBool:
		if len(payload) != 1 {
			return ir.Literal{}, nil, bongoerr.Deserializer()
		}
		return ir.Bool(payload[0] != 0), rest, nil
	case ir.TypeVarchar:
		term := -1
		for i, b := range payload {
			if b == varcharTerminator {
				term = i
				break
			}
		}
		if term < 0 {
			return ir.Literal{}, nil, bongoerr.Deserializer()
		}
		return ir.Varchar(string(payload[:term])), rest, nil
	default:
		return ir.Literal{}, nil, bongoerr.Internal("unknown column kind")
	}
}

// RowSize returns the total on-disk byte width of a row over the given
// column schema.
func RowSize(cols []ir.ColumnDef) int {
	n := 0
	for _, c := range cols {
		n += c.Type.DiskSize()
	}
	return n
}

// EncodeRow encodes every cell of row in column order.
func EncodeRow(cols []ir.ColumnDef, row ir.Row) ([]byte, error) {
	if len(row) != len(cols) {
		return nil, bongoerr.Internal("row has %d cells, table has %d columns", len(row), len(cols))
	}
	buf := make([]byte, 0, RowSize(cols))
	var err error
	for i, c := range cols {
		buf, err = EncodeCell(buf, c.Type, row[i])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeRow decodes a full row of len(cols) cells from src. src must be
// exactly RowSize(cols) bytes.
func DecodeRow(cols []ir.ColumnDef, src []byte) (ir.Row, error) {
	if len(src) != RowSize(cols) {
		return nil, bongoerr.Deserializer()
	}
	row := make(ir.Row, len(cols))
	rest := src
	for i, c := range cols {
		var lit ir.Literal
		var err error
		lit, rest, err = DecodeCell(rest, c.Type)
		if err != nil {
			return nil, err
		}
		row[i] = lit
	}
	return row, nil
}
