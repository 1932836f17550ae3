// Package errors defines common error types for the rating solver.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown       = "UNKNOWN_ERROR"
	CodeFileAccess    = "FILE_ACCESS_ERROR"
	CodeParseError    = "PARSE_ERROR"
	CodeIterationCap  = "ITERATION_CAP_REACHED"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeConfigError   = "CONFIG_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodePublishError  = "PUBLISH_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrFileAccess    = New(CodeFileAccess, "file access error")
	ErrParseError    = New(CodeParseError, "parse error")
	ErrIterationCap  = New(CodeIterationCap, "iteration cap reached")
	ErrInvalidInput  = New(CodeInvalidInput, "invalid input")
	ErrConfigError   = New(CodeConfigError, "configuration error")
	ErrStorageError  = New(CodeStorageError, "storage error")
	ErrDatabaseError = New(CodeDatabaseError, "database error")
	ErrPublishError  = New(CodePublishError, "publish error")
)

// ParseError describes a malformed input record. Line is 1-based.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("[%s] line %d: %s: %q", CodeParseError, e.Line, e.Reason, e.Text)
}

// Is reports whether target is the parse error sentinel.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == CodeParseError
}

// NewParseError creates a ParseError for the given line.
func NewParseError(line int, text, reason string) *ParseError {
	return &ParseError{Line: line, Text: text, Reason: reason}
}

// FileAccess wraps an OS error raised while opening or mapping path.
func FileAccess(path string, err error) *AppError {
	return Wrap(CodeFileAccess, fmt.Sprintf("cannot access %s", path), err)
}

// IsFileAccessError checks if the error is a file access error.
func IsFileAccessError(err error) bool {
	return errors.Is(err, ErrFileAccess)
}

// IsParseError checks if the error is a parse error.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParseError)
}

// IsIterationCap checks if the error reports a non-converged run.
func IsIterationCap(err error) bool {
	return errors.Is(err, ErrIterationCap)
}

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return CodeParseError
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
