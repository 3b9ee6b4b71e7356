// internal/common/errors/errors.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeClassification ErrorCode = "CLASSIFICATION_ERROR"
	ErrCodeGeneration     ErrorCode = "GENERATION_ERROR"
	ErrCodeServiceTimeout ErrorCode = "SERVICE_TIMEOUT"
	ErrCodeStoreUnavail   ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeSelection      ErrorCode = "SELECTION_ERROR"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrValidation     = &StandardError{Code: ErrCodeValidation}
	ErrClassification = &StandardError{Code: ErrCodeClassification}
	ErrGeneration     = &StandardError{Code: ErrCodeGeneration}
	ErrServiceTimeout = &StandardError{Code: ErrCodeServiceTimeout}
	ErrStoreUnavail   = &StandardError{Code: ErrCodeStoreUnavail}
	ErrSelection      = &StandardError{Code: ErrCodeSelection}
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.Cause }

func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of the error with one more metadata entry. The receiver
// is left untouched, so errors handed out by collaborators can be shared.
func (e *StandardError) With(key string, value interface{}) *StandardError {
	out := *e
	out.Metadata = make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata[key] = value
	return &out
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewValidationError reports a malformed template at catalog-load time.
func NewValidationError(templateID, field, details string) *StandardError {
	e := newError(ErrCodeValidation, "Template validation failed", nil, false)
	e.Details = details
	return e.With("templateId", templateID).With("field", field)
}

// NewInvalidInputError reports job variables that do not match a worker's input contract.
func NewInvalidInputError(details string) *StandardError {
	e := newError(ErrCodeValidation, "Invalid job input", nil, false)
	e.Details = details
	return e
}

// NewClassificationError reports a per-image tagger failure.
func NewClassificationError(filename string, err error) *StandardError {
	return newError(ErrCodeClassification, "Image classification failed", err, false).
		With("filename", filename)
}

// NewGenerationError reports a missing or malformed generator reply.
func NewGenerationError(templateID string, err error) *StandardError {
	return newError(ErrCodeGeneration, "Text generation failed", err, false).
		With("templateId", templateID)
}

// NewServiceTimeoutError reports an external call that exceeded its deadline.
func NewServiceTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeServiceTimeout, fmt.Sprintf("Service '%s' timeout", service), err, true).
		With("service", service)
}

// NewStoreUnavailableError reports an unreachable or empty template store.
func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavail, "Template store unavailable", err, true)
}

// NewSelectionError reports a selected template that cannot be used.
func NewSelectionError(templateID, details string) *StandardError {
	e := newError(ErrCodeSelection, "Selected template is not usable", nil, false)
	e.Details = details
	return e.With("templateId", templateID)
}

// FromCallError classifies an error returned by an external capability call.
// Deadline expiry becomes SERVICE_TIMEOUT; StandardErrors pass through; anything else uses fallback.
func FromCallError(service string, err error, fallback func(error) *StandardError) *StandardError {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewServiceTimeoutError(service, err)
	}
	var se *StandardError
	if stderrors.As(err, &se) {
		return se
	}
	return fallback(err)
}

// CodeOf extracts the code of err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeServiceTimeout, ErrCodeStoreUnavail:
		return 2
	default:
		return 0
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation, ErrCodeSelection:
		return "BUSINESS"
	case ErrCodeServiceTimeout, ErrCodeStoreUnavail:
		return "TECHNICAL"
	case ErrCodeGeneration, ErrCodeClassification:
		return "MODEL"
	default:
		return "UNKNOWN"
	}
}
