// Package errors provides the structured error type shared by the intent
// pipeline, the chat loop and the NATS transport.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode is a stable, machine readable error identifier. Codes are
// returned to NATS callers in IntentResponse.ErrorCode.
type ErrorCode string

const (
	ErrCodeLLMFailed      ErrorCode = "LLM_API_FAILED"
	ErrCodeLLMTimeout     ErrorCode = "LLM_API_TIMEOUT"
	ErrCodeParseError     ErrorCode = "PARSE_ERROR"
	ErrCodeUnknownIntent  ErrorCode = "UNKNOWN_INTENT"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeStorageFailed  ErrorCode = "STORAGE_FAILED"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewLLMError classifies a failed model call. Deadline overruns are
// reported as LLM_API_TIMEOUT, everything else as LLM_API_FAILED.
func NewLLMError(provider string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeLLMTimeout, fmt.Sprintf("%s request timed out", provider), err, true)
	}
	return newError(ErrCodeLLMFailed, fmt.Sprintf("%s request failed", provider), err, true)
}

// NewParseError reports a model response that could not be understood.
func NewParseError(details string) *StandardError {
	e := newError(ErrCodeParseError, "failed to understand model response", nil, false)
	e.Details = details
	return e
}

// NewInvalidRequestError reports a malformed intent request.
func NewInvalidRequestError(details string) *StandardError {
	e := newError(ErrCodeInvalidRequest, "invalid request", nil, false)
	e.Details = details
	return e
}

// NewUnknownIntentError reports a tool name that is not in the catalog.
func NewUnknownIntentError(name string) *StandardError {
	e := newError(ErrCodeUnknownIntent, "intent is not in the catalog", nil, false)
	e.Details = name
	return e
}

// NewStorageError wraps a history store failure.
func NewStorageError(op string, err error) *StandardError {
	return newError(ErrCodeStorageFailed, op, err, true)
}

// NewConfigError reports invalid or missing configuration.
func NewConfigError(details string) *StandardError {
	e := newError(ErrCodeConfigInvalid, "invalid configuration", nil, false)
	e.Details = details
	return e
}

// CodeOf returns the code of the first StandardError in err's chain,
// or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}
