package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed to API clients.
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeConfiguration         = "CONFIGURATION_ERROR"
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"
	CodeConstraintViolation   = "CONSTRAINT_VIOLATION"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	CodeTicketCreationFailed  = "TICKET_CREATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeRateLimited           = "RATE_LIMITED"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. They match any DomainError carrying the same code.
var (
	ErrValidation            = &DomainError{Code: CodeValidation}
	ErrConfiguration         = &DomainError{Code: CodeConfiguration}
	ErrClassifierUnavailable = &DomainError{Code: CodeClassifierUnavailable}
	ErrConstraintViolation   = &DomainError{Code: CodeConstraintViolation}
	ErrStorageUnavailable    = &DomainError{Code: CodeStorageUnavailable}
	ErrTicketCreationFailed  = &DomainError{Code: CodeTicketCreationFailed}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewConfigurationError reports an operator mistake such as a missing credential.
func NewConfigurationError(message string) error {
	return NewDomainError(CodeConfiguration, message, http.StatusInternalServerError, nil)
}

// NewClassifierUnavailable wraps a failed or malformed classifier call.
func NewClassifierUnavailable(err error) error {
	return &DomainError{
		Code:       CodeClassifierUnavailable,
		Message:    "category classifier unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewConstraintViolation wraps an integrity conflict raised by the store.
func NewConstraintViolation(op, constraint string, err error) error {
	details := map[string]any{"operation": op}
	if constraint != "" {
		details["constraint"] = constraint
	}
	return &DomainError{
		Code:       CodeConstraintViolation,
		Message:    op + ": constraint violation",
		HTTPStatus: http.StatusConflict,
		Details:    details,
		Err:        err,
	}
}

// NewInvalidValue reports a value the store rejected as malformed. It is a
// validation failure, not a storage outage.
func NewInvalidValue(op, column string, err error) error {
	details := map[string]any{"operation": op}
	if column != "" {
		details["column"] = column
	}
	return &DomainError{
		Code:       CodeValidation,
		Message:    op + ": invalid value",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
		Err:        err,
	}
}

// NewStorageUnavailable wraps a connectivity or storage failure.
func NewStorageUnavailable(op string, err error) error {
	return &DomainError{
		Code:       CodeStorageUnavailable,
		Message:    op + ": storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

// NewTicketCreationFailed wraps the cause of an aborted ticket creation. The HTTP
// status follows the cause so clients can still tell bad input from server failure.
func NewTicketCreationFailed(cause error) error {
	status := http.StatusInternalServerError
	details := map[string]any{}
	var causeErr *DomainError
	if errors.As(cause, &causeErr) {
		details["cause"] = causeErr.Code
		if causeErr.HTTPStatus != 0 {
			status = causeErr.HTTPStatus
		}
	}
	return &DomainError{
		Code:       CodeTicketCreationFailed,
		Message:    "ticket creation failed",
		HTTPStatus: status,
		Details:    details,
		Err:        cause,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests, nil)
}

// NewDependencyUnavailable reports failed readiness checks keyed by dependency name.
func NewDependencyUnavailable(checks map[string]any) error {
	return NewDomainError(CodeDependencyUnavailable, "one or more dependencies unavailable", http.StatusServiceUnavailable, checks)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
