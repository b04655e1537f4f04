package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongodb/bongo/internal/ir"
)

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	cols := []ir.ColumnDef{
		{Name: "id", Type: ir.IntType()},
		{Name: "active", Type: ir.BoolType()},
		{Name: "name", Type: ir.VarcharType(8)},
	}
	row := ir.Row{ir.Int(42), ir.Bool(true), ir.Varchar("abc")}

	encoded, err := EncodeRow(cols, row)
	require.NoError(t, err)
	assert.Equal(t, RowSize(cols), len(encoded))

	decoded, err := DecodeRow(cols, encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.True(t, decoded[0].Equal(ir.Int(42)))
	assert.True(t, decoded[1].Equal(ir.Bool(true)))
	assert.True(t, decoded[2].Equal(ir.Varchar("abc")))
}

func TestEncodeDecodeNullCell(t *testing.T) {
	col := ir.IntType()
	buf, err := EncodeCell(nil, col, ir.Null())
	require.NoError(t, err)
	assert.Equal(t, col.DiskSize(), len(buf))

	lit, rest, err := DecodeCell(buf, col)
	require.NoError(t, err)
	assert.True(t, lit.IsNull())
	assert.Empty(t, rest)
}

func TestVarcharPadding(t *testing.T) {
	col := ir.VarcharType(5)
	buf, err := EncodeCell(nil, col, ir.Varchar("hi"))
	require.NoError(t, err)
	assert.Equal(t, col.DiskSize(), len(buf))

	lit, _, err := DecodeCell(buf, col)
	require.NoError(t, err)
	assert.Equal(t, "hi", lit.StringValue())
}

func TestEncodeCellRejectsOversizeVarchar(t *testing.T) {
	col := ir.VarcharType(2)
	_, err := EncodeCell(nil, col, ir.Varchar("too long"))
	assert.Error(t, err)
}

func TestDecodeRowRejectsWrongLength(t *testing.T) {
	cols := []ir.ColumnDef{{Name: "id", Type: ir.IntType()}}
	_, err := DecodeRow(cols, []byte{1, 2, 3})
	assert.Error(t, err)
}
