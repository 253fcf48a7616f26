package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is works
// against the sentinel values below after wrapping.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by every bounded context. They double as the
// machine-readable code surfaced at the HTTP boundary.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeImmutableRecord        = "IMMUTABLE_RECORD"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeNotImplemented         = "NOT_IMPLEMENTED"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrServiceUnavailable     = NewDomainError(CodeServiceUnavailable, "Service temporarily unavailable, please retry")
	ErrNotImplemented         = NewDomainError(CodeNotImplemented, "Operation is not implemented")
)

// AsDomainError unwraps err into a *DomainError when possible.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
