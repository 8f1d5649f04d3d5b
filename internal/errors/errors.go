package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// Ledger reconciliation error kinds. Retryable vs terminal is decided by
	// the event router based on these marks, not by inspecting messages.
	ErrUnknownPriceID          = new(ErrCodeUnknownPriceID, "price id is not in the configured catalog")
	ErrNoResolvablePrice       = new(ErrCodeNoResolvablePrice, "no invoice line resolves to a configured price")
	ErrInsufficientCorrelation = new(ErrCodeInsufficientCorrelation, "refund could not be traced to a credit grant")
	ErrProfileNotFound         = new(ErrCodeProfileNotFound, "user profile not found for provider customer")
	ErrAlreadyProcessed        = new(ErrCodeAlreadyProcessed, "event already processed")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:              http.StatusInternalServerError,
		ErrDatabase:                http.StatusInternalServerError,
		ErrNotFound:                http.StatusNotFound,
		ErrAlreadyExists:           http.StatusConflict,
		ErrValidation:              http.StatusBadRequest,
		ErrInvalidOperation:        http.StatusBadRequest,
		ErrSystem:                  http.StatusInternalServerError,
		// Catalog and ordering misses are retryable: the catalog entry or the
		// missing profile row usually shows up before the provider gives up
		// redelivering.
		ErrUnknownPriceID:    http.StatusInternalServerError,
		ErrNoResolvablePrice: http.StatusInternalServerError,
		ErrProfileNotFound:   http.StatusInternalServerError,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"

	ErrCodeUnknownPriceID          = "unknown_price_id"
	ErrCodeNoResolvablePrice       = "no_resolvable_price"
	ErrCodeInsufficientCorrelation = "insufficient_correlation"
	ErrCodeProfileNotFound         = "profile_not_found"
	ErrCodeAlreadyProcessed        = "already_processed"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsUnknownPriceID checks if an error is an unknown price id error
func IsUnknownPriceID(err error) bool {
	return errors.Is(err, ErrUnknownPriceID)
}

// IsNoResolvablePrice checks if an error is a line selection failure
func IsNoResolvablePrice(err error) bool {
	return errors.Is(err, ErrNoResolvablePrice)
}

// IsInsufficientCorrelation checks if a refund failed to correlate
func IsInsufficientCorrelation(err error) bool {
	return errors.Is(err, ErrInsufficientCorrelation)
}

// IsProfileNotFound checks if an error is a missing user profile
func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

// IsAlreadyProcessed checks if an error is the idempotent short-circuit
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// ErrCodeFromErr returns the machine-readable code of the sentinel err wraps.
func ErrCodeFromErr(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ErrCodeSystemError
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
