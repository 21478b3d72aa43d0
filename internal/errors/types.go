// Package errors provides the typed application error used across the
// landing site. An AppError carries a Kind that callers branch on, a stable
// code for logs and JSON responses, and an optional cause.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind represents different categories of errors.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConfig     Kind = "config"
	KindNetwork    Kind = "network"
	KindProvider   Kind = "provider"
	KindConflict   Kind = "conflict"
	KindSubmission Kind = "submission"
	KindSecurity   Kind = "security"
	KindInternal   Kind = "internal"
)

// AppError is a structured error type with context.
type AppError struct {
	Kind        Kind
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *AppError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same kind and code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component

	return e
}

// WithCause attaches an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Kind:        KindValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *AppError {
	return &AppError{
		Kind:    KindConfig,
		Code:    code,
		Message: message,
	}
}

// NewNetworkError creates a transport-level error.
func NewNetworkError(code, message string, cause error) *AppError {
	return &AppError{
		Kind:        KindNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewProviderError creates an error for a rejection reported by a remote service.
func NewProviderError(code, message string) *AppError {
	return &AppError{
		Kind:        KindProvider,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConflictError creates an error for an operation that clashes with
// current state.
func NewConflictError(code, message string) *AppError {
	return &AppError{
		Kind:        KindConflict,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewSubmissionError creates the single user-facing failure of a form
// submission. The cause keeps the transport or provider detail.
func NewSubmissionError(code, message string, cause error) *AppError {
	return &AppError{
		Kind:        KindSubmission,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *AppError {
	return &AppError{
		Kind:    KindSecurity,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}

	return KindInternal
}

// IsKind checks whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Kind == kind {
			return true
		}
		err = ae.Cause
	}

	return false
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Recoverable
	}

	return false
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}

	return ""
}

// Logger is the subset of the logging interface the handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Handler logs errors at a level chosen by their kind.
type Handler struct {
	logger Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err. Validation and conflict errors are expected traffic and
// logged as warnings.
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ae *AppError
	if !errors.As(err, &ae) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch ae.Kind {
	case KindValidation, KindConflict:
		h.logger.Warn(ctx, err, "Request rejected",
			"kind", ae.Kind,
			"code", ae.Code)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"kind", ae.Kind,
			"code", ae.Code,
			"component", ae.Component)
	}
}

// Common error codes.
const (
	ErrCodeRequiredField     = "ERR_REQUIRED_FIELD"
	ErrCodeUnknownField      = "ERR_UNKNOWN_FIELD"
	ErrCodeInvalidPayload    = "ERR_INVALID_PAYLOAD"
	ErrCodeSubmissionFailed  = "ERR_SUBMISSION_FAILED"
	ErrCodeSubmissionPending = "ERR_SUBMISSION_IN_FLIGHT"
	ErrCodeMissingCredential = "ERR_MISSING_CREDENTIAL"
	ErrCodeProviderRejected  = "ERR_PROVIDER_REJECTED"
	ErrCodeTransport         = "ERR_TRANSPORT"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInvalidOrigin     = "ERR_INVALID_ORIGIN"
	ErrCodeRateLimited       = "ERR_RATE_LIMITED"
)
