package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error kinds. Each file's run terminates on the first of these it
// hits, except ErrPersistence which is logged and swallowed.
var (
	ErrIntakeRejected     = errors.New("file type not accepted")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrParseFailed        = errors.New("parse failed")
	ErrNoStructuredBlock  = errors.New("no structured block in response")
	ErrMalformedPayload   = errors.New("malformed structured payload")
	ErrPersistence        = errors.New("persistence failed")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateTask      = errors.New("file already pending")
)

// NewAppError builds an AppError with a stable code.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
