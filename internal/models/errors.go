package models

import (
	"context"
	"errors"
	"strings"

	"github.com/ayo6706/swift-remit/internal/domain"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrConflictingTransition = errors.New("conflicting transition")
	ErrNotFound              = errors.New("transaction not found")
	ErrNotYetVerified        = errors.New("transaction not yet verified")
	ErrForbidden             = errors.New("insufficient permissions")
	ErrStoreUnavailable      = errors.New("record store unavailable")
	ErrSettlementRejected    = errors.New("settlement network rejected submission")
)

// Error kinds as reported to callers.
const (
	KindValidation            = "ValidationError"
	KindInvalidTransition     = "InvalidTransition"
	KindConflictingTransition = "ConflictingTransition"
	KindNotFound              = "NotFound"
	KindNotYetVerified        = "NotYetVerified"
	KindAuthorization         = "AuthorizationError"
	KindStoreUnavailable      = "StoreUnavailable"
	KindSettlementRejected    = "SettlementRejected"
	KindInternal              = "Internal"
)

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []domain.FieldViolation
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []domain.FieldViolation{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrorKind maps an error onto the caller-facing taxonomy.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrConflictingTransition):
		return KindConflictingTransition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotYetVerified):
		return KindNotYetVerified
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindStoreUnavailable
	case errors.Is(err, ErrSettlementRejected):
		return KindSettlementRejected
	default:
		return KindInternal
	}
}

// PublicMessage is the caller-facing text of err. Store and internal failures get a
// fixed message so driver and network details stay in the server log.
func PublicMessage(err error) string {
	switch ErrorKind(err) {
	case "":
		return ""
	case KindStoreUnavailable:
		return "record store temporarily unavailable; retry later"
	case KindInternal:
		return "unexpected server error"
	default:
		return err.Error()
	}
}
