// Package apperror defines the failure taxonomy shared by every layer.
// Lower layers return *Error values (or wrap them); the HTTP error
// normalizer is the only place that turns them into responses.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindValidation
	KindConflict
	KindUpload
	KindQuery
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUpload:
		return "upload"
	case KindQuery:
		return "query"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a failure of this kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindConflict, KindUpload, KindQuery:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a message that is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	// Err is the wrapped cause and takes part in errors.Is/As.
	Err error
	// Internal is logged server side but hidden from errors.Is/As.
	Internal error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status of the error kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

func Conflict(message string, err error) *Error {
	return Wrap(KindConflict, message, err)
}

func Query(message string, err error) *Error {
	return Wrap(KindQuery, message, err)
}

func Upload(message string, err error) *Error {
	return Wrap(KindUpload, message, err)
}

// Validation builds a validation failure for a set of fields.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// InvalidField is shorthand for a validation failure on one field.
func InvalidField(field, message string) *Error {
	return Validation("invalid data", map[string]string{field: message})
}

// WithInternal attaches a cause that is logged but never unwrapped.
func (e *Error) WithInternal(err error) *Error {
	e.Internal = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
