// Package apperr carries the error taxonomy that services raise and the HTTP
// layer maps to status codes.  Business-rule violations are created at the
// point of detection and travel unchanged to the boundary; unexpected
// failures are wrapped as Internal so their cause is logged but never shown.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

// Reason codes attached to token failures so clients can tell a silent
// refresh (expired) from a forced re-login (invalid, revoked, missing).
const (
	CodeTokenMissing = "token_missing"
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"
	CodeTokenRevoked = "token_revoked"
)

// Error is the typed error returned by services.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newErr(k Kind, code, msg string) *Error { return &Error{Kind: k, Code: code, Message: msg} }

func Validation(msg string) *Error   { return newErr(KindValidation, "validation_failed", msg) }
func Unauthorized(msg string) *Error { return newErr(KindUnauthorized, "unauthorized", msg) }
func Forbidden(msg string) *Error    { return newErr(KindForbidden, "forbidden", msg) }
func NotFound(msg string) *Error     { return newErr(KindNotFound, "not_found", msg) }
func Conflict(msg string) *Error     { return newErr(KindConflict, "conflict", msg) }

// Token builds an Unauthorized error carrying one of the token reason codes.
func Token(code, msg string) *Error { return newErr(KindUnauthorized, code, msg) }

// Unavailable marks a failed dependency the client may retry against.
func Unavailable(msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: "service_unavailable", Message: msg, Err: cause}
}

// Internal wraps an unexpected failure.  msg is logged with the cause; the
// client only ever sees a generic message.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: msg, Err: cause}
}

// Wrap passes typed errors through and turns everything else into Internal.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return Internal(msg, err)
}

// KindOf reports the kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf reports the reason code of err, "" for untyped errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
