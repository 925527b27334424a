package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a weatheragent error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrBackendMisconfigured ErrorCode = "BACKEND_MISCONFIGURED" // 500
	ErrProviderFailed       ErrorCode = "PROVIDER_FAILED"       // 502
	ErrBackendUnavailable   ErrorCode = "BACKEND_UNAVAILABLE"   // 503
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// AgentError represents a structured error with code, status, and details.
type AgentError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AgentError {
	return &AgentError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewBackendMisconfigured creates a 500 error when the generative backend
// cannot be constructed from the current configuration.
func NewBackendMisconfigured(msg string) *AgentError {
	return &AgentError{
		Code:    ErrBackendMisconfigured,
		Status:  500,
		Message: msg,
	}
}

// NewBackendUnavailable creates a 503 error for failed calls to the generative backend.
func NewBackendUnavailable(backend string, err error) *AgentError {
	msg := "backend unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &AgentError{
		Code:    ErrBackendUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"backend": backend},
		Err:     err,
	}
}

// NewProviderFailed creates a 502 error when a capability provider cannot answer.
func NewProviderFailed(capability, location string, err error) *AgentError {
	msg := fmt.Sprintf("%s lookup failed for %q", capability, location)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &AgentError{
		Code:    ErrProviderFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"capability": capability, "location": location},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AgentError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AgentError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is an AgentError with the given code.
func Is(err error, code ErrorCode) bool {
	var aErr *AgentError
	if stderrors.As(err, &aErr) {
		return aErr.Code == code
	}
	return false
}

// As returns the AgentError in err's chain, if there is one.
func As(err error) (*AgentError, bool) {
	var aErr *AgentError
	if stderrors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}
