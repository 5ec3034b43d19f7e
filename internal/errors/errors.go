package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeUnauthenticated indicates no token is present for the session.
	// Handlers resolve it with a redirect to the login flow, never as a raw error.
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeTokenInvalid indicates the refresh token was rejected by the
	// authorization server. Treated identically to unauthenticated.
	ErrCodeTokenInvalid ErrorCode = "token_invalid"
	// ErrCodeStateMismatch indicates the OAuth state returned to the callback
	// did not match the one issued at login.
	ErrCodeStateMismatch ErrorCode = "state_mismatch"
	// ErrCodeAccessDenied indicates the callback completed without a usable
	// token (missing code, denied consent, missing access token).
	ErrCodeAccessDenied ErrorCode = "access_denied"
	// ErrCodeTenantNotFound indicates a valid token with no organisation
	// connection.
	ErrCodeTenantNotFound ErrorCode = "tenant_not_found"
	// ErrCodeNotFound indicates a downstream resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates the downstream API rejected the request
	// with field-level errors.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeDownstream indicates a non-validation rejection from the
	// accounting or identity API.
	ErrCodeDownstream ErrorCode = "downstream"
	// ErrCodeNetwork indicates a transport-level failure talking to the
	// authorization, identity, or accounting endpoints.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use
// with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// FieldErrors carries downstream field-level validation messages (optional)
	FieldErrors []string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Unauthenticated creates a new Unauthenticated error.
func Unauthenticated(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthenticated, Message: message}
}

// TokenInvalid creates a new TokenInvalid error.
func TokenInvalid(message string) *AppError {
	return &AppError{Code: ErrCodeTokenInvalid, Message: message}
}

// StateMismatch creates a new StateMismatch error.
func StateMismatch(message string) *AppError {
	return &AppError{Code: ErrCodeStateMismatch, Message: message}
}

// AccessDenied creates a new AccessDenied error.
func AccessDenied(message string) *AppError {
	return &AppError{Code: ErrCodeAccessDenied, Message: message}
}

// TenantNotFound creates a new TenantNotFound error.
func TenantNotFound(message string) *AppError {
	return &AppError{Code: ErrCodeTenantNotFound, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationFields creates a Validation error carrying field-level messages.
func ValidationFields(message string, fields []string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, FieldErrors: fields}
}

// Downstream creates a new Downstream error.
func Downstream(message string) *AppError {
	return &AppError{Code: ErrCodeDownstream, Message: message}
}

// Network creates a new Network error.
func Network(message string) *AppError {
	return &AppError{Code: ErrCodeNetwork, Message: message}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsUnauthenticated checks if an error is an Unauthenticated error.
func IsUnauthenticated(err error) bool {
	return isCode(err, ErrCodeUnauthenticated)
}

// IsTokenInvalid checks if an error is a TokenInvalid error.
func IsTokenInvalid(err error) bool {
	return isCode(err, ErrCodeTokenInvalid)
}

// IsAuth reports whether an error belongs to the authentication class:
// unauthenticated or an invalid/rejected refresh token. Both force re-login.
func IsAuth(err error) bool {
	return IsUnauthenticated(err) || IsTokenInvalid(err)
}

// IsStateMismatch checks if an error is a StateMismatch error.
func IsStateMismatch(err error) bool {
	return isCode(err, ErrCodeStateMismatch)
}

// IsAccessDenied checks if an error is an AccessDenied error.
func IsAccessDenied(err error) bool {
	return isCode(err, ErrCodeAccessDenied)
}

// IsTenantNotFound checks if an error is a TenantNotFound error.
func IsTenantNotFound(err error) bool {
	return isCode(err, ErrCodeTenantNotFound)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsDownstream checks if an error is a Downstream error.
func IsDownstream(err error) bool {
	return isCode(err, ErrCodeDownstream)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return isCode(err, ErrCodeNetwork)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetFieldErrors returns downstream field errors, or nil when absent.
func GetFieldErrors(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.FieldErrors
	}
	return nil
}
