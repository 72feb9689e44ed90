package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")
	ErrInternalServer   = errors.New("internal server error")
	ErrValidation       = errors.New("validation error")
	ErrShareDenied      = errors.New("share access denied")
	ErrPasswordRequired = errors.New("share password required")
	ErrStorage          = errors.New("storage failure")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func Validation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Err: ErrValidation}
}

// ShareDenied carries a reason that is safe to show to the caller as-is.
func ShareDenied(reason string) *AppError {
	return &AppError{Code: "SHARE_DENIED", Message: reason, Err: ErrShareDenied}
}

func PasswordRequired() *AppError {
	return &AppError{Code: "PASSWORD_REQUIRED", Message: "this link is password protected", Err: ErrPasswordRequired}
}

func IncorrectPassword() *AppError {
	return &AppError{Code: "INCORRECT_PASSWORD", Message: "incorrect password", Err: ErrShareDenied}
}

// QuotaExceeded is reported to clients like any other validation failure.
func QuotaExceeded(msg string) *AppError {
	return &AppError{Code: "QUOTA_EXCEEDED", Message: msg, Err: fmt.Errorf("%w: %w", ErrValidation, ErrQuotaExceeded)}
}

// Storage wraps a blob store or persistence failure. The cause is kept for
// logs but never rendered to clients.
func Storage(msg string, err error) *AppError {
	return &AppError{Code: "STORAGE_ERROR", Message: msg, Err: fmt.Errorf("%w: %w", ErrStorage, err)}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

// PublicMessage returns the message that may be shown to a client, or the
// fallback when err is not an AppError.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
