// Package apperr classifies failures so the HTTP and CLI layers can map them
// onto status codes and exit codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the failure class of an error.
type Kind string

const (
	KindUnknown                Kind = ""
	KindInvalidInput           Kind = "invalid_input"
	KindNotFound               Kind = "not_found"
	KindUpstreamFailure        Kind = "upstream_failure"
	KindResourceCleanupFailure Kind = "resource_cleanup_failure"
)

// Error carries a Kind, the failing operation, and a caller-facing message.
// Err holds the underlying cause used for diagnostics.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.message() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.message() + ": " + e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.message()
	default:
		return e.message()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

// InvalidInput reports a user-correctable problem with the request.
func InvalidInput(op, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

// NotFound reports that nothing deliverable exists for the request.
func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

// Upstream wraps a failure of a wrapped provider or library.
func Upstream(op, msg string, err error) *Error {
	return &Error{Kind: KindUpstreamFailure, Op: op, Msg: msg, Err: err}
}

// Cleanup wraps a temporary resource deletion failure.
func Cleanup(op string, err error) *Error {
	return &Error{Kind: KindResourceCleanupFailure, Op: op, Msg: "cleanup failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message of the first *Error in err's
// chain, or fallback when none is set.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

// HTTPStatus maps a Kind onto a response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
