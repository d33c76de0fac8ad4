// Package errors defines the application error taxonomy: local validation
// failures, rejected credentials, backend rejections, transport failures,
// and malformed backend data are distinct, user-facing conditions.
package errors

import (
	"fmt"
	"net/http"

	"console/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
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

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches errors by business code, so a detail-carrying copy still
// matches its catalog sentinel under errors.Is.
func (e *BaseError) Is(target error) bool {
	base, ok := target.(*BaseError)

	return ok && e.errorCode == base.errorCode
}

// Predefined error types
var (
	// Validation errors (local, raised before any network call)
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrEmptyProductName = NewBaseError(
		http.StatusBadRequest,
		"EMPTY_PRODUCT_NAME",
		"Product name must not be empty",
		"",
	)

	ErrInvalidProductPrice = NewBaseError(
		http.StatusBadRequest,
		"INVALID_PRODUCT_PRICE",
		"Product price must be a non-negative number",
		"",
	)

	ErrMissingDateRange = NewBaseError(
		http.StatusBadRequest,
		"MISSING_DATE_RANGE",
		"Please select both from and to dates",
		"",
	)

	ErrInvertedDateRange = NewBaseError(
		http.StatusBadRequest,
		"INVERTED_DATE_RANGE",
		"The from date must not be after the to date",
		"",
	)

	// Authentication errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Email or password is incorrect",
		"",
	)

	ErrRegistrationRejected = NewBaseError(
		http.StatusBadRequest,
		"REGISTRATION_REJECTED",
		"Registration was rejected",
		"",
	)

	ErrNotAuthenticated = NewBaseError(
		http.StatusUnauthorized,
		"NOT_AUTHENTICATED",
		"You are not logged in",
		"",
	)

	ErrTokenMissing = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_MISSING",
		"Authentication token missing. Please log in again.",
		"",
	)

	ErrSessionInvalidated = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_INVALIDATED",
		"Your session is no longer valid. Please log in again.",
		"",
	)

	// Coordinator errors
	ErrProductBusy = NewBaseError(
		http.StatusConflict,
		"PRODUCT_BUSY",
		"Another change to this product is still in progress",
		"",
	)

	ErrNoPendingDelete = NewBaseError(
		http.StatusConflict,
		"NO_PENDING_DELETE",
		"There is no delete awaiting confirmation for this product",
		"",
	)

	ErrProductNotFound = NewBaseError(
		http.StatusNotFound,
		"PRODUCT_NOT_FOUND",
		"Product not found",
		"",
	)

	// Data errors (malformed entity from the backend)
	ErrUnidentifiedProduct = NewBaseError(
		http.StatusUnprocessableEntity,
		"UNIDENTIFIED_PRODUCT",
		"This product record has no usable identifier and cannot be edited or deleted",
		"",
	)

	ErrMalformedResponse = NewBaseError(
		http.StatusBadGateway,
		"MALFORMED_RESPONSE",
		"The server response could not be understood",
		"",
	)
)

// RemoteError represents a non-2xx answer from the merchant backend on a data
// operation. It is distinct from ConnectivityError: a response was received.
type RemoteError struct {
	StatusCode     int    // Upstream HTTP status.
	BackendMessage string // Message extracted from the response body, if any.
}

// NewRemoteError creates a backend rejection error for the given status.
func NewRemoteError(statusCode int, backendMessage string) *RemoteError {
	return &RemoteError{StatusCode: statusCode, BackendMessage: backendMessage}
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.BackendMessage != "" {
		return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.BackendMessage)
	}

	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPCode returns the HTTP status code
func (e *RemoteError) HTTPCode() int {
	return http.StatusBadGateway
}

// ErrorCode returns the business error code
func (e *RemoteError) ErrorCode() string {
	return "BACKEND_REJECTED"
}

// Message returns the user-friendly error message
func (e *RemoteError) Message() string {
	if e.BackendMessage != "" {
		return e.BackendMessage
	}

	return "The server rejected the request"
}

// Details returns detailed error information
func (e *RemoteError) Details() string {
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// Unauthorized reports whether the backend considered our credentials invalid.
func (e *RemoteError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// ConnectivityError represents a transport-level failure: no response was
// received at all.
type ConnectivityError struct {
	cause error
}

// NewConnectivityError wraps a transport failure.
func NewConnectivityError(cause error) *ConnectivityError {
	return &ConnectivityError{cause: cause}
}

// Error implements the error interface
func (e *ConnectivityError) Error() string {
	return errors.Wrap(e.cause, "cannot reach server").Error()
}

// Unwrap exposes the transport cause.
func (e *ConnectivityError) Unwrap() error {
	return e.cause
}

// HTTPCode returns the HTTP status code
func (e *ConnectivityError) HTTPCode() int {
	return http.StatusServiceUnavailable
}

// ErrorCode returns the business error code
func (e *ConnectivityError) ErrorCode() string {
	return "BACKEND_UNREACHABLE"
}

// Message returns the user-friendly error message
func (e *ConnectivityError) Message() string {
	return "Cannot reach the server. Please check your connection and try again."
}

// Details returns detailed error information
func (e *ConnectivityError) Details() string {
	if e.cause == nil {
		return ""
	}

	return e.cause.Error()
}

// QueryError represents a transaction report query the backend answered but
// did not fulfill (non-404 rejection or a success-flag failure).
type QueryError struct {
	Reason string
}

// NewQueryError creates a query failure carrying the best-available message.
func NewQueryError(reason string) *QueryError {
	if reason == "" {
		reason = "Failed to fetch transactions"
	}

	return &QueryError{Reason: reason}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return "transaction query failed: " + e.Reason
}

// HTTPCode returns the HTTP status code
func (e *QueryError) HTTPCode() int {
	return http.StatusBadGateway
}

// ErrorCode returns the business error code
func (e *QueryError) ErrorCode() string {
	return "QUERY_FAILED"
}

// Message returns the user-friendly error message
func (e *QueryError) Message() string {
	return e.Reason
}

// Details returns detailed error information
func (e *QueryError) Details() string {
	return ""
}
