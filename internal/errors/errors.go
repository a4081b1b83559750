package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates bad caller input.
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	// ErrCodeUnsupportedPlatform indicates the URL does not belong to a supported platform.
	ErrCodeUnsupportedPlatform ErrorCode = "unsupported_platform"
	// ErrCodeExtraction indicates a metadata probe failed.
	ErrCodeExtraction ErrorCode = "extraction"
	// ErrCodeDownload indicates a media retrieval failed.
	ErrCodeDownload ErrorCode = "download"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeNotReady indicates the job has not produced an artifact yet.
	ErrCodeNotReady ErrorCode = "not_ready"
	// ErrCodeMissingArtifact indicates the recorded artifact no longer exists on storage.
	ErrCodeMissingArtifact ErrorCode = "missing_artifact"
	// ErrCodeCapacity indicates the engine refused work because its queue is full.
	ErrCodeCapacity ErrorCode = "capacity"
	// ErrCodeConflict indicates the request conflicts with current state.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific input field that caused the error (optional)
	Field string
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

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// InvalidRequest creates a new InvalidRequest error.
func InvalidRequest(message string) *AppError {
	return newError(ErrCodeInvalidRequest, message)
}

// InvalidField creates a new InvalidRequest error for a specific field.
func InvalidField(field, message string) *AppError {
	return &AppError{Code: ErrCodeInvalidRequest, Message: message, Field: field}
}

// UnsupportedPlatform creates a new UnsupportedPlatform error.
func UnsupportedPlatform(message string) *AppError {
	return newError(ErrCodeUnsupportedPlatform, message)
}

// Extraction wraps a metadata probe failure.
func Extraction(cause error, message string) *AppError {
	return &AppError{Code: ErrCodeExtraction, Message: message, Cause: cause}
}

// Download wraps a media retrieval failure.
func Download(cause error, message string) *AppError {
	return &AppError{Code: ErrCodeDownload, Message: message, Cause: cause}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return newError(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// NotReadyf creates a new NotReady error with formatted message.
func NotReadyf(format string, args ...any) *AppError {
	return newError(ErrCodeNotReady, fmt.Sprintf(format, args...))
}

// MissingArtifact creates a new MissingArtifact error.
func MissingArtifact(message string) *AppError {
	return newError(ErrCodeMissingArtifact, message)
}

// Capacity creates a new Capacity error.
func Capacity(message string) *AppError {
	return newError(ErrCodeCapacity, message)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return newError(ErrCodeConflict, message)
}

// Conflictf creates a new Conflict error with formatted message.
func Conflictf(format string, args ...any) *AppError {
	return newError(ErrCodeConflict, fmt.Sprintf(format, args...))
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return newError(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidRequest checks if an error is an InvalidRequest error.
func IsInvalidRequest(err error) bool {
	return isCode(err, ErrCodeInvalidRequest)
}

// IsUnsupportedPlatform checks if an error is an UnsupportedPlatform error.
func IsUnsupportedPlatform(err error) bool {
	return isCode(err, ErrCodeUnsupportedPlatform)
}

// IsExtraction checks if an error is an Extraction error.
func IsExtraction(err error) bool {
	return isCode(err, ErrCodeExtraction)
}

// IsDownload checks if an error is a Download error.
func IsDownload(err error) bool {
	return isCode(err, ErrCodeDownload)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsNotReady checks if an error is a NotReady error.
func IsNotReady(err error) bool {
	return isCode(err, ErrCodeNotReady)
}

// IsMissingArtifact checks if an error is a MissingArtifact error.
func IsMissingArtifact(err error) bool {
	return isCode(err, ErrCodeMissingArtifact)
}

// IsCapacity checks if an error is a Capacity error.
func IsCapacity(err error) bool {
	return isCode(err, ErrCodeCapacity)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
