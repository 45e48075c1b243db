package common

import (
	"errors"
	"fmt"
)

// Stage and orchestration error codes. These are the stable strings stored
// in a job's error_message prefix and surfaced through the status API.
const (
	CodeEmptyInput         = "EMPTY_INPUT"
	CodeOcrUnavailable     = "OCR_UNAVAILABLE"
	CodeNoTextFound        = "NO_TEXT_FOUND"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeInputTooLarge      = "INPUT_TOO_LARGE"
	CodeModelUnavailable   = "MODEL_UNAVAILABLE"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeStageTimeout       = "STAGE_TIMEOUT"
)

// AppError represents application-specific errors.
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

// Common application errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// ErrClaimLost means another advance invocation holds the stage claim.
	// Callers treat it as a benign no-op, never as a failure.
	ErrClaimLost = errors.New("concurrent claim lost")

	// ErrPersistence wraps metadata-store write failures during a state
	// transition. The triggering mechanism is expected to re-invoke advance.
	ErrPersistence = errors.New("persistence failure")
)

// NewAppError builds an AppError with the given code, message and cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the AppError code from err, or "" if err carries none.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
