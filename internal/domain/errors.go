package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeTransientService = "TRANSIENT_SERVICE_ERROR"
	ErrCodePermanentService = "PERMANENT_SERVICE_ERROR"
	ErrCodeModelMismatch    = "MODEL_MISMATCH"
	ErrCodeIndexEmpty       = "INDEX_EMPTY"
	ErrCodeIndexStale       = "INDEX_STALE"
	ErrCodeBuildIncomplete  = "BUILD_INCOMPLETE"
	ErrCodePromptTooLarge   = "PROMPT_TOO_LARGE"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrMissingQuery         = NewDomainError(ErrCodeValidation, "query is required")
	ErrInvalidTopK          = NewDomainError(ErrCodeValidation, "top-k must be positive")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
	ErrViewNotFound    = NewDomainError(ErrCodeNotFound, "structured view not found")
	ErrIndexNotFound   = NewDomainError(ErrCodeNotFound, "index state not found, run a build first")
)

// Pipeline errors
var (
	ErrIndexEmpty     = NewDomainError(ErrCodeIndexEmpty, "embedding index is empty")
	ErrPromptTooLarge = NewDomainError(ErrCodePromptTooLarge, "prompt exceeds generation input limit after truncation")
)

// NewBuildIncomplete reports a build whose partial progress was
// persisted but which could not embed every chunk.
func NewBuildIncomplete(failed []string) *DomainError {
	return NewDomainError(ErrCodeBuildIncomplete,
		fmt.Sprintf("build left %d chunks unembedded: %s", len(failed), strings.Join(failed, ", ")))
}

// NewModelMismatch reports an index built with a different embedding
// model than the one configured.
func NewModelMismatch(indexModel, configuredModel string) *DomainError {
	return NewDomainError(ErrCodeModelMismatch,
		fmt.Sprintf("index built with model %q but %q is configured", indexModel, configuredModel))
}

// NewTransientServiceError wraps a retryable provider failure
// (rate limit, timeout).
func NewTransientServiceError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTransientService, "embedding or generation service unavailable", err)
}

// NewPermanentServiceError wraps a provider failure that retrying
// cannot fix (auth failure, malformed request).
func NewPermanentServiceError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodePermanentService, "embedding or generation service rejected the request", err)
}

// NewGenerationFailed wraps a generation call that failed after its
// bounded retry.
func NewGenerationFailed(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGenerationFailed, "generation service failed", err)
}

// IsTransient reports whether err is retryable with backoff.
func IsTransient(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrCodeTransientService
	}
	return false
}

// ErrorCode returns the domain error code, or ErrCodeInternalError for
// errors outside the taxonomy.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}
