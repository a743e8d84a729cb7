// Package apperr defines the error taxonomy surfaced at the HTTP boundary.
// Lower layers return plain wrapped errors; handlers classify them into an
// *Error so the gateway can map each kind to one status code and one body
// shape.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error class returned to clients in the
// "error" field of every failure body.
type Kind string

const (
	KindUnauthorized Kind = "Unauthorized"
	KindValidation   Kind = "ValidationError"
	KindNotFound     Kind = "NotFound"
	KindUpstream     Kind = "UpstreamFailure"
	KindInternal     Kind = "InternalError"
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Details is shown to the client verbatim;
// Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Details)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(details string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Details: details, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Details: fmt.Sprintf(format, args...)}
}

func NotFound(details string, err error) *Error {
	return &Error{Kind: KindNotFound, Details: details, Err: err}
}

// Upstream classifies a failed call to an external provider. details must
// be safe to show to clients; the provider's own message stays in err.
func Upstream(details string, err error) *Error {
	return &Error{Kind: KindUpstream, Details: details, Err: err}
}

func Internal(details string, err error) *Error {
	return &Error{Kind: KindInternal, Details: details, Err: err}
}

// From returns err as an *Error. Unclassified errors become InternalError
// with a generic detail so internal state never reaches the client.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("an internal error occurred", err)
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
