// Package bongoerr defines the typed error taxonomy shared by every layer of
// the engine, from SQL reduction down to the wire protocol. A *Error carries
// a Kind so the wire layer can recover the exact tag spec.md §7 requires
// without string-matching fmt.Errorf text.
package bongoerr

import "fmt"

// Kind identifies one of the error variants in spec.md §7.
type Kind string

const (
	KindSqlSyntax         Kind = "SqlSyntaxError"
	KindSqlRuntime        Kind = "SqlRuntimeError"
	KindEmptySqlStatement Kind = "EmptySqlStatementError"
	KindUnsupportedFeature Kind = "UnsupportedFeatureError"
	KindInternal          Kind = "InternalError"
	KindWebServer         Kind = "WebServerError"
	KindDatabaseNotFound  Kind = "DatabaseNotFoundError"
	KindReadFile          Kind = "ReadFileError"
	KindWriteFile         Kind = "WriteFileError"
	KindDeserializer      Kind = "DeserializerError"
	KindInvalidArgument   Kind = "InvalidArgumentError"
)

// hasMessage reports whether a Kind's JSON error payload carries a message
// string (an object like {"InternalError":"..."}) as opposed to a bare tag
// (like "EmptySqlStatementError").
var hasMessage = map[Kind]bool{
	KindSqlSyntax:          true,
	KindSqlRuntime:         true,
	KindEmptySqlStatement:  false,
	KindUnsupportedFeature: true,
	KindInternal:           true,
	KindWebServer:          true,
	KindDatabaseNotFound:   true,
	KindReadFile:           true,
	KindWriteFile:          true,
	KindDeserializer:       false,
	KindInvalidArgument:    true,
}

// Error is the engine's single error type. Statement reduction and execution
// return either nil or a *Error so the wire layer can serialize the exact tag
// required by spec.md without inspecting error text. The wire package's
// framing helpers and the response encoder return plain errors; As wraps
// those as Internal.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HasMessage reports whether this error's Kind carries a message payload in
// its JSON encoding, or is serialized as a bare tag string.
func (e *Error) HasMessage() bool { return hasMessage[e.Kind] }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func SqlSyntax(format string, args ...any) *Error  { return newf(KindSqlSyntax, format, args...) }
func SqlRuntime(format string, args ...any) *Error { return newf(KindSqlRuntime, format, args...) }
func EmptySqlStatement() *Error                    { return &Error{Kind: KindEmptySqlStatement} }
func UnsupportedFeature(format string, args ...any) *Error {
	return newf(KindUnsupportedFeature, format, args...)
}
func Internal(format string, args ...any) *Error { return newf(KindInternal, format, args...) }
func WebServer(format string, args ...any) *Error { return newf(KindWebServer, format, args...) }
func DatabaseNotFound(format string, args ...any) *Error {
	return newf(KindDatabaseNotFound, format, args...)
}
func ReadFile(format string, args ...any) *Error  { return newf(KindReadFile, format, args...) }
func WriteFile(format string, args ...any) *Error { return newf(KindWriteFile, format, args...) }
func Deserializer() *Error                        { return &Error{Kind: KindDeserializer} }
func InvalidArgument(format string, args ...any) *Error {
	return newf(KindInvalidArgument, format, args...)
}

// Wrap annotates an underlying error with a Kind while preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// As recovers a *Error from an arbitrary error value, wrapping it as Internal
// if it is not already one of ours. Useful at package boundaries that call
// into the standard library (os, encoding/json, ...).
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return Internal("%s", err.Error())
}
