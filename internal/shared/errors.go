package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error returned to procedure callers.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindInternal           Kind = "INTERNAL"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateRequest marks a replayed idempotency key.
	ErrDuplicateRequest = errors.New("duplicate request")
)

// Error is the typed failure every procedure returns. Cause is kept for
// server-side logging and is never serialised.
type Error struct {
	Kind       Kind
	Message    string
	Fields     map[string]string
	Permission string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind, so errors.Is(err, shared.Forbidden(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// Unauthenticated reports a missing or expired session.
func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden reports a principal lacking the capability for an action.
func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "forbidden"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

// MissingPermission reports a permission middleware rejection.
func MissingPermission(code string) *Error {
	return &Error{Kind: KindForbidden, Message: "missing permission " + code, Permission: code}
}

// Validation reports invalid input; fields is keyed by JSON field path.
func Validation(msg string, fields map[string]string) *Error {
	if msg == "" {
		msg = "validation failed"
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// FieldError is shorthand for a validation failure on a single field.
func FieldError(field, msg string) *Error {
	return Validation("validation failed", map[string]string{field: msg})
}

// NotFound reports a missing referenced entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Cause: ErrNotFound}
}

// Conflict reports a uniqueness violation on a business key.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Precondition reports a business rule or state machine violation.
func Precondition(msg string) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: msg}
}

// Internal wraps an infrastructure failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}

// KindOf classifies err. Anything outside the taxonomy is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// AsError returns err as *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: "not found", Cause: err}
	}
	return Internal(err)
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
