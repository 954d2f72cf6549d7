package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindInvalidState   ErrKind = "invalid_state"  // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 500, retryable
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging only
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a domain error carrying code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ErrValidationFailed carries one reason per offending field.
func ErrValidationFailed(fields map[string]string) *Error {
	return WithMeta(New(KindValidation, "validation_failed", "Validation failed"), fields)
}

func ErrInvalidInterval() *Error {
	return New(KindValidation, "invalid_interval", "start time must be before end time")
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(New(KindValidation, "invalid_role", "invalid role"), map[string]string{
		"role": role,
	})
}

// ----------------------
// Invalid state (400)
// ----------------------

func ErrEventNotApproved() *Error {
	return New(KindInvalidState, "event_not_approved", "cannot register for non-approved events")
}

func ErrNotRegistered() *Error {
	return New(KindInvalidState, "not_registered", "not registered for this event")
}

// ----------------------
// Auth (401)
// ----------------------

// Login failures never reveal whether the email exists.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenMalformed() *Error {
	return New(KindAuth, "token_malformed", "invalid authentication token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "authentication token has expired")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden(msg string) *Error {
	if msg == "" {
		msg = "you don't have permission to perform this action"
	}
	return New(KindForbidden, "forbidden", msg)
}

func ErrInsufficientRole(required string) *Error {
	return WithMeta(New(KindForbidden, "insufficient_role", "insufficient role"), map[string]string{
		"required": required,
	})
}

// ----------------------
// Not found (404)
// ----------------------

func ErrEventNotFound() *Error {
	return New(KindNotFound, "event_not_found", "event not found")
}

func ErrResourceNotFound() *Error {
	return New(KindNotFound, "resource_not_found", "resource not found")
}

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrReservationConflict() *Error {
	return New(KindConflict, "reservation_conflict", "resource already booked for requested time range")
}

func ErrAlreadyRegistered() *Error {
	return New(KindConflict, "already_registered", "already registered for this event")
}

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (500)
// ----------------------

// ErrStoreUnavailable covers lock timeouts, cancelled transactions and driver failures.
// Callers may retry.
func ErrStoreUnavailable(cause error) *Error {
	return WithMeta(
		Wrap(KindInfrastructure, "store_unavailable", "store unavailable, please retry", cause),
		map[string]string{"retryable": "true"},
	)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
