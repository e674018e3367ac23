// Package apperr defines the tagged business error type shared by every
// service, and its single mapping to HTTP status codes. Handlers never branch
// on error message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business failure.
type Kind int

const (
	// KindValidation covers malformed input and broken business rules
	// (lead not convertible, client already linked).
	KindValidation Kind = iota
	// KindNotFound means a referenced entity id does not exist.
	KindNotFound
	// KindConflict means the operation lost to an earlier write: a taken
	// calendar slot, an already-consumed conversion guard.
	KindConflict
	// KindForbidden means a role or ownership check failed.
	KindForbidden
	// KindRateLimited means the caller exceeded the request budget and
	// should back off.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "validation"
	}
}

// Error is a business failure with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is lets errors.Is match two apperr values by kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a tagged error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, wrapped: err}
}

// NotFound builds a not-found error for an entity id.
func NotFound(entity, id string) *Error {
	return Newf(KindNotFound, "%s %s not found", entity, id)
}

// KindOf extracts the kind from err, defaulting to KindValidation for
// untagged business errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindValidation, false
}

// HTTPStatus maps a tagged error to its response code. Untagged errors map to
// 500 so unexpected failures are never presented as client mistakes.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
