// Package errors defines the error taxonomy shared by ingestion and queries.
// Every error carries a kind, a stable code and enough context (package,
// object) to be reported both in terminal output and as JSON.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies an error
type Kind string

const (
	// KindDecodeFailure means a package archive or metadata document is unreadable
	KindDecodeFailure Kind = "decode_failure"
	// KindPartialObjectFailure means one object could not be normalized
	KindPartialObjectFailure Kind = "partial_object_failure"
	// KindNotFound means a lookup matched nothing
	KindNotFound Kind = "not_found"
	// KindAmbiguous means a name lookup matched several objects
	KindAmbiguous Kind = "ambiguous"
	// KindInvalidRequest means boundary input violated a documented constraint
	KindInvalidRequest Kind = "invalid_request"
)

// Code is a stable machine-readable error code
type Code string

const (
	CodeArchive        Code = "DEC001"
	CodeDocument       Code = "DEC002"
	CodeObject         Code = "OBJ001"
	CodeNotFound       Code = "NF001"
	CodeAmbiguous      Code = "AMB001"
	CodeInvalidRequest Code = "REQ001"
)

// Error is a structured error
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Package string `json:"package,omitempty"`
	Object  string `json:"object,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.Package != "" {
		fmt.Fprintf(&b, "package %s: ", e.Package)
	}
	if e.Object != "" {
		fmt.Fprintf(&b, "object %s: ", e.Object)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so that errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Sentinels usable with errors.Is
var (
	ErrDecodeFailure        = &Error{Kind: KindDecodeFailure}
	ErrPartialObjectFailure = &Error{Kind: KindPartialObjectFailure}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrAmbiguous            = &Error{Kind: KindAmbiguous}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
)

// DecodeArchive reports an unreadable package archive
func DecodeArchive(pkg string, err error) *Error {
	return &Error{Kind: KindDecodeFailure, Code: CodeArchive, Message: "cannot read package archive", Package: pkg, Err: err}
}

// DecodeDocument reports a malformed metadata document
func DecodeDocument(pkg string, err error) *Error {
	return &Error{Kind: KindDecodeFailure, Code: CodeDocument, Message: "malformed metadata document", Package: pkg, Err: err}
}

// PartialObject reports an object that could not be normalized
func PartialObject(pkg, object string, err error) *Error {
	return &Error{Kind: KindPartialObjectFailure, Code: CodeObject, Message: "object skipped", Package: pkg, Object: object, Err: err}
}

// NotFound reports a lookup miss
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Ambiguous reports a name lookup with several matches
func Ambiguous(format string, args ...any) *Error {
	return &Error{Kind: KindAmbiguous, Code: CodeAmbiguous, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequest reports rejected boundary input
func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsInvalidRequest reports whether err is an InvalidRequest
func IsInvalidRequest(err error) bool {
	return KindOf(err) == KindInvalidRequest
}
