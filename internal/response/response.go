// Package response implements the Response Codec (spec.md §4.8): the exact
// JSON shapes the wire protocol exchanges, mirrored from the reference
// implementation's serde-tagged BongoResult/BongoError enums and the
// teacher's own marshal-to-string convention (internal/output/json.go).
package response

import (
	"encoding/json"
	"fmt"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/ir"
)

// Response is the top-level {"Ok":...} / {"Err":...} envelope a statement
// resolves to.
type Response struct {
	Ok  *OkPayload
	Err *bongoerr.Error
}

// OkPayload is the success variant: nil Rows means a non-SELECT statement
// ({"Ok":null}); an empty, non-nil Rows means a SELECT with no matches
// ({"Ok":[]}); otherwise it's the row set.
type OkPayload struct {
	Rows []ir.Row
}

func OkNone() Response              { return Response{Ok: &OkPayload{Rows: nil}} }
func OkRows(rows []ir.Row) Response { return Response{Ok: &OkPayload{Rows: rows}} }
func Err(err *bongoerr.Error) Response { return Response{Err: err} }

// MarshalJSON renders exactly the {"Ok":...}/{"Err":...} envelope shape.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		errJSON, err := marshalError(r.Err)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]json.RawMessage{"Err": errJSON})
	}

	var okJSON json.RawMessage
	if r.Ok.Rows == nil {
		okJSON = json.RawMessage("null")
	} else {
		cells, err := marshalRows(r.Ok.Rows)
		if err != nil {
			return nil, err
		}
		okJSON = cells
	}
	return json.Marshal(map[string]json.RawMessage{"Ok": okJSON})
}

// marshalError renders a bare tag string for message-less variants
// (EmptySqlStatementError, DeserializerError) and a single-key object for
// every other variant, per spec.md §7.
func marshalError(e *bongoerr.Error) (json.RawMessage, error) {
	if !e.HasMessage() {
		return json.Marshal(string(e.Kind))
	}
	return json.Marshal(map[string]string{string(e.Kind): e.Message})
}

func marshalRows(rows []ir.Row) (json.RawMessage, error) {
	out := make([][]json.RawMessage, len(rows))
	for i, row := range rows {
		cells := make([]json.RawMessage, len(row))
		for j, lit := range row {
			cellJSON, err := marshalLiteral(lit)
			if err != nil {
				return nil, err
			}
			cells[j] = cellJSON
		}
		out[i] = cells
	}
	return json.Marshal(out)
}

// marshalLiteral renders a single cell as its tagged-value object:
// {"Int":1}, {"Bool":true}, {"Varchar":"a"}, or null for a NULL cell.
func marshalLiteral(lit ir.Literal) (json.RawMessage, error) {
	if lit.IsNull() {
		return json.RawMessage("null"), nil
	}
	switch lit.Kind() {
	case ir.LiteralInt:
		return json.Marshal(map[string]int64{"Int": lit.IntValue()})
	case ir.LiteralBool:
		return json.Marshal(map[string]bool{"Bool": lit.BoolValue()})
	case ir.LiteralVarchar:
		return json.Marshal(map[string]string{"Varchar": lit.StringValue()})
	default:
		return nil, fmt.Errorf("response: unknown literal kind %v", lit.Kind())
	}
}

// Encode renders resp as its final wire-ready JSON bytes.
func Encode(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// Request is the {"sql":"..."} shape a client sends (spec.md §4.7).
type Request struct {
	SQL string `json:"sql"`
}

// DecodeRequest parses a client's SQL request frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, bongoerr.Deserializer()
	}
	return req, nil
}
