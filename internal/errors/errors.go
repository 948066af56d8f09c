package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SourceUnavailable indicates the module's source could not be read or fetched
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// InvalidSource indicates the stripper or extractor rejected the module text
	InvalidSource ErrorCode = "INVALID_SOURCE"
	// DependencyTransformFailed indicates a dependency could not be transformed;
	// the parent module falls back to the resolved specifier for that edge
	DependencyTransformFailed ErrorCode = "DEPENDENCY_TRANSFORM_FAILED"
	// CacheWriteFailed indicates the transformed text could not be persisted
	CacheWriteFailed ErrorCode = "CACHE_WRITE_FAILED"
	// ConfigInvalid indicates a configuration problem
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// TransformError represents a remod error with a stable code, the module
// it concerns, and the underlying cause.
type TransformError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Module  string    `json:"module,omitempty"`
	cause   error
}

// New creates a new TransformError
func New(code ErrorCode, message string, cause error) *TransformError {
	return &TransformError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *TransformError) Error() string {
	prefix := string(e.Code)
	if e.Module != "" {
		prefix = fmt.Sprintf("%s %s", e.Code, e.Module)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *TransformError) Unwrap() error {
	return e.cause
}

// WithModule records the module the error concerns
func (e *TransformError) WithModule(module string) *TransformError {
	e.Module = module
	return e
}

// CodeOf returns the error code carried by err, or InternalError if err
// is not a TransformError.
func CodeOf(err error) ErrorCode {
	var te *TransformError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
