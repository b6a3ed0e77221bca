// Package errors defines the error taxonomy shared by backends, transforms
// and the indexing service.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for indexing operations.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a missing or invalid configuration value.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeNotSupported indicates an operation the backend variant cannot perform.
	ErrCodeNotSupported ErrorCode = "NOT_SUPPORTED"
	// ErrCodeOperationFailed indicates a remote or storage step failed after being attempted.
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"
	// ErrCodeNotInitialized indicates a backend has no model to work with.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"
	// ErrCodeBackendNotFound indicates an unknown backend identifier.
	ErrCodeBackendNotFound ErrorCode = "BACKEND_NOT_FOUND"
	// ErrCodeDependencyMissing indicates a known backend whose optional provider is absent.
	ErrCodeDependencyMissing ErrorCode = "DEPENDENCY_MISSING"
)

// ErrBackendNotFound is matched by every BACKEND_NOT_FOUND error via errors.Is.
var ErrBackendNotFound = stderrors.New("unknown backend")

// IndexError represents a structured error for indexing operations.
type IndexError struct {
	Code      ErrorCode
	Message   string
	BackendID string
	Cause     error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	msg := e.Message
	if e.BackendID != "" {
		msg = fmt.Sprintf("backend %s: %s", e.BackendID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrBackendNotFound) match unknown-backend errors.
func (e *IndexError) Is(target error) bool {
	return target == ErrBackendNotFound && e.Code == ErrCodeBackendNotFound
}

// WithBackend sets the backend the error refers to.
func (e *IndexError) WithBackend(backendID string) *IndexError {
	e.BackendID = backendID
	return e
}

// Configuration creates a configuration error.
func Configuration(format string, args ...any) *IndexError {
	return &IndexError{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NotSupported creates a not-supported error.
func NotSupported(format string, args ...any) *IndexError {
	return &IndexError{Code: ErrCodeNotSupported, Message: fmt.Sprintf(format, args...)}
}

// OperationFailed creates an operation-failed error wrapping cause.
func OperationFailed(cause error, format string, args ...any) *IndexError {
	return &IndexError{Code: ErrCodeOperationFailed, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotInitialized creates a not-initialized error.
func NotInitialized(format string, args ...any) *IndexError {
	return &IndexError{Code: ErrCodeNotInitialized, Message: fmt.Sprintf(format, args...)}
}

// BackendNotFound creates an unknown-backend error.
func BackendNotFound(name string) *IndexError {
	return &IndexError{Code: ErrCodeBackendNotFound, Message: fmt.Sprintf("unknown backend: %s", name)}
}

// DependencyMissing creates an error naming the unavailable capability.
func DependencyMissing(capability string) *IndexError {
	return &IndexError{Code: ErrCodeDependencyMissing, Message: fmt.Sprintf("%s not available", capability)}
}

// IsCode checks if an error, or any error it wraps, carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an IndexError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Code
	}
	return defaultCode
}
