package llm

import (
	"errors"
)

// Error is the single error kind returned across the adapter boundary.
// Backend-specific errors are kept as the wrapped cause.
type Error struct {
	Type     ErrorType
	Mode     Mode
	Provider string
	Message  string
	Err      error // Original backend-specific error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeInitialization ErrorType = "initialization"
	ErrorTypeCompletion     ErrorType = "completion"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying backend error.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasType(err error, t ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == t
	}
	return false
}

// IsInitializationError checks if an error came from building a backend handle.
func IsInitializationError(err error) bool {
	return hasType(err, ErrorTypeInitialization)
}

// IsCompletionError checks if an error came from the backend call itself.
func IsCompletionError(err error) bool {
	return hasType(err, ErrorTypeCompletion)
}

// IsValidationError checks if an error is a JSON parse or schema mismatch.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsInvalidRequestError checks if the caller's input was rejected before any I/O.
func IsInvalidRequestError(err error) bool {
	return hasType(err, ErrorTypeInvalidRequest)
}

// ModeOf returns the completion mode recorded on err, if any.
func ModeOf(err error) (Mode, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) && llmErr.Mode != "" {
		return llmErr.Mode, true
	}
	return "", false
}

// NewInitializationError creates an error for a handle that could not be built.
func NewInitializationError(provider, message string, err error) *Error {
	return &Error{
		Type:     ErrorTypeInitialization,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewCompletionError creates an error for a failed backend call.
func NewCompletionError(provider string, mode Mode, message string, err error) *Error {
	return &Error{
		Type:     ErrorTypeCompletion,
		Mode:     mode,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewValidationError creates an error for content that is not valid JSON or
// does not match the requested schema.
func NewValidationError(provider, message string, err error) *Error {
	return &Error{
		Type:     ErrorTypeValidation,
		Mode:     ModeJSON,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewInvalidRequestError creates an error for input rejected before any I/O.
func NewInvalidRequestError(mode Mode, message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInvalidRequest,
		Mode:    mode,
		Message: message,
		Err:     err,
	}
}

// WrapError funnels any failure from a backend call into an *Error. Errors
// that are already *Error pass through unchanged so validation failures keep
// their type.
func WrapError(provider string, mode Mode, message string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}
	return NewCompletionError(provider, mode, message, err)
}
