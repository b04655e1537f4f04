package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
)

func TestOkNoneEncodesAsNull(t *testing.T) {
	b, err := Encode(OkNone())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":null}`, string(b))
}

func TestOkEmptyRowsEncodesAsEmptyArray(t *testing.T) {
	b, err := Encode(OkRows([]ir.Row{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":[]}`, string(b))
}

func TestOkRowsEncodesTaggedCells(t *testing.T) {
	rows := []ir.Row{{ir.Int(1), ir.Varchar("a"), ir.Bool(true)}}
	b, err := Encode(OkRows(rows))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":[[{"Int":1},{"Varchar":"a"},{"Bool":true}]]}`, string(b))
}

func TestNullCellEncodesAsNull(t *testing.T) {
	rows := []ir.Row{{ir.Null()}}
	b, err := Encode(OkRows(rows))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ok":[[null]]}`, string(b))
}

func TestBareTagErrorEncoding(t *testing.T) {
	b, err := Encode(Err(bongoerr.EmptySqlStatement()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Err":"EmptySqlStatementError"}`, string(b))
}

func TestMessageErrorEncoding(t *testing.T) {
	b, err := Encode(Err(bongoerr.Internal("boom")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Err":{"InternalError":"boom"}}`, string(b))
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"sql":"select * from t"}`))
	require.NoError(t, err)
	assert.Equal(t, "select * from t", req.SQL)
}
