// Package errors defines the application error taxonomy shared between the
// planning engine and the delivery layer.
package errors

import (
	"net/http"

	"stroll/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
	Retryable() bool   // Whether the caller may simply re-invoke the operation
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
	retryable bool
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Retryable reports whether re-invoking the failed operation may succeed
// without any caller-side state repair.
func (e *BaseError) Retryable() bool {
	return e.retryable
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
		retryable: e.retryable,
	}
}

func (e *BaseError) asRetryable() *BaseError {
	e.retryable = true

	return e
}

// Predefined error types
var (
	// Planning errors
	ErrNoCandidates = NewBaseError(
		http.StatusUnprocessableEntity,
		"NO_CANDIDATES",
		"discovery returned no usable points of interest",
		"",
	)

	ErrRouteUnsatisfiable = NewBaseError(
		http.StatusUnprocessableEntity,
		"ROUTE_UNSATISFIABLE",
		"the constraints cannot be met with the available stops",
		"",
	)

	ErrDirectionsFailure = NewBaseError(
		http.StatusBadGateway,
		"DIRECTIONS_FAILURE",
		"the directions provider could not price the route",
		"",
	).asRetryable()

	ErrPlanTimeout = NewBaseError(
		http.StatusGatewayTimeout,
		"PLAN_TIMEOUT",
		"route planning exceeded its deadline",
		"",
	).asRetryable()

	// Edit session errors
	ErrInvalidEdit = NewBaseError(
		http.StatusBadRequest,
		"INVALID_EDIT",
		"the edit is not valid for the current route",
		"",
	)

	ErrRouteNowEmpty = NewBaseError(
		http.StatusConflict,
		"ROUTE_NOW_EMPTY",
		"deleting this stop would leave the route without intermediate stops",
		"",
	)

	ErrEditConflict = NewBaseError(
		http.StatusConflict,
		"EDIT_CONFLICT",
		"the session is busy optimizing, retry after it settles",
		"",
	)

	ErrSessionNotFound = NewBaseError(
		http.StatusNotFound,
		"SESSION_NOT_FOUND",
		"no edit session with that identifier",
		"",
	)

	ErrNothingToCommit = NewBaseError(
		http.StatusConflict,
		"NOTHING_TO_COMMIT",
		"the session has no pending changes",
		"",
	)

	ErrNothingToDiscard = NewBaseError(
		http.StatusConflict,
		"NOTHING_TO_DISCARD",
		"the session has no pending changes to discard",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"input validation failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"internal error",
		"",
	)
)

// Response is the unified error envelope rendered by the delivery layer.
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries the business error code and optional details.
type ErrorInfo struct {
	Code      string `json:"code"`
	Details   string `json:"details"`
	Retryable bool   `json:"retryable"`
}
