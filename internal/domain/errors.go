package domain

import "fmt"

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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnavailable   = "CAPABILITY_UNAVAILABLE"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrInvalidTurnRole      = NewDomainError(ErrCodeValidation, "invalid turn role")
	ErrInvalidHistoryLimit  = NewDomainError(ErrCodeValidation, "history limit must be greater than 0")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrDomainRecordNotFound = NewDomainError(ErrCodeNotFound, "domain record not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Capability errors
var (
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeUnavailable, "embedding provider not configured or unreachable")
	ErrGenerationUnavailable = NewDomainError(ErrCodeUnavailable, "generation backend not configured or unreachable")
	ErrGenerationTimeout     = NewDomainError(ErrCodeTimeout, "generation timed out")
)

// Storage errors
var (
	ErrTurnNotRecorded = NewDomainError(ErrCodeStorage, "failed to record conversation turn")
)
