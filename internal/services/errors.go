package services

import (
	"context"
	"errors"
	"fmt"

	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindMethodUnavailable ErrorKind = "METHOD_UNAVAILABLE"
	KindDuplicateOrder    ErrorKind = "DUPLICATE_ORDER"
	KindNoRequisite       ErrorKind = "NO_REQUISITE"
	KindNotFound          ErrorKind = "TRANSACTION_NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindStoreTimeout      ErrorKind = "STORE_TIMEOUT"
	KindStoreConflict     ErrorKind = "STORE_CONFLICT"
)

// Error is the caller-facing failure of an allocation or status operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on kind so callers can test errors.Is(err, services.ErrNoRequisite).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Details == nil
}

func newErr(kind ErrorKind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func (e *Error) with(k string, v any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[k] = v
	return e
}

// Sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrMethodUnavailable = &Error{Kind: KindMethodUnavailable}
	ErrDuplicateOrder    = &Error{Kind: KindDuplicateOrder}
	ErrNoRequisite       = &Error{Kind: KindNoRequisite}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrStoreTimeout      = &Error{Kind: KindStoreTimeout}
	ErrStoreConflict     = &Error{Kind: KindStoreConflict}
)

// KindOf returns the kind carried by err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// storeErr classifies a repository failure. Unknown errors pass through.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindStoreTimeout, Message: op + " timed out", cause: err}
	case errors.Is(err, repo.ErrConflict):
		return &Error{Kind: KindStoreConflict, Message: op + " conflicted", cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
