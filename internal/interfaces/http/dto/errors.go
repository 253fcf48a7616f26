package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeNotImplemented is used for operations that exist but are not yet supported
	ErrCodeNotImplemented = "ERR_NOT_IMPLEMENTED"
	// ErrCodeServiceUnavailable is used when a dependency cannot serve the request right now
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeValidationLength is used when a field length is invalid
	ErrCodeValidationLength = "ERR_VALIDATION_LENGTH"
)

// Principal error codes
const (
	// ErrCodeUnauthorized is used when the caller did not identify itself
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Lifecycle error codes
const (
	// ErrCodeInvalidTransition is used when the state machine refuses a move
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
	// ErrCodeImmutableRecord is used when a terminal record is edited
	ErrCodeImmutableRecord = "ERR_IMMUTABLE_RECORD"
	// ErrCodePaymentPending is used when an order cannot complete before its invoice is paid
	ErrCodePaymentPending = "ERR_PAYMENT_PENDING"
	// ErrCodeDuplicatePayment is used when a gateway transaction was already applied elsewhere
	ErrCodeDuplicatePayment = "ERR_DUPLICATE_PAYMENT"
	// ErrCodeOverpaymentRejected is used when a payment exceeds the amount due
	ErrCodeOverpaymentRejected = "ERR_OVERPAYMENT_REJECTED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Lifecycle errors -> 409 Conflict, overpayment -> 422
	ErrCodeInvalidTransition:   http.StatusConflict,
	ErrCodeImmutableRecord:     http.StatusConflict,
	ErrCodePaymentPending:      http.StatusConflict,
	ErrCodeDuplicatePayment:    http.StatusConflict,
	ErrCodeOverpaymentRejected: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the codes sent on the wire.
// NUMBERING_CONFLICT only escapes the services when retries were exhausted.
var DomainErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR":        ErrCodeValidation,
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"INVALID_TRANSITION":      ErrCodeInvalidTransition,
	"IMMUTABLE_RECORD":        ErrCodeImmutableRecord,
	"CONCURRENT_MODIFICATION": ErrCodeConcurrencyConflict,
	"SERVICE_UNAVAILABLE":     ErrCodeServiceUnavailable,
	"NOT_IMPLEMENTED":         ErrCodeNotImplemented,
	"OVERPAYMENT_REJECTED":    ErrCodeOverpaymentRejected,
	"NUMBERING_CONFLICT":      ErrCodeServiceUnavailable,
	"PAYMENT_PENDING":         ErrCodePaymentPending,
	"DUPLICATE_PAYMENT":       ErrCodeDuplicatePayment,
	"BAD_REQUEST":             ErrCodeBadRequest,
	"INTERNAL_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
