// Package errors provides the error taxonomy for the Okta MCP server.
//
// Every failure that reaches an MCP client carries one of the stable codes
// below so that an LLM tool loop can react to the kind of failure without
// parsing message text.
package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, enumerated error code.
type Code string

const (
	// Unknown is returned when an error carries no code.
	Unknown Code = "unknown"

	// Protocol level failures.
	ParseError     Code = "parse_error"
	InvalidRequest Code = "invalid_request"
	MethodNotFound Code = "method_not_found"
	TransportError Code = "transport_error"

	// Tool invocation failures.
	UnknownTool      Code = "unknown_tool"
	DuplicateTool    Code = "duplicate_tool"
	InvalidArguments Code = "invalid_arguments"
	InternalError    Code = "internal_error"
	Cancelled        Code = "cancelled"

	// Directory service failures.
	Upstream      Code = "upstream_error"
	RateLimited   Code = "rate_limited"
	NotFound      Code = "not_found"
	Configuration Code = "configuration_error"

	// Time utility failures.
	UnparseableExpression Code = "unparseable_expression"
)

// Error is an error with a stable code, an optional retry-after hint and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string

	// Field names the first offending argument for InvalidArguments errors.
	Field string

	// RetryAfter is the number of seconds to wait before retrying, for
	// RateLimited errors. Zero means no hint.
	RetryAfter int

	// Details carries extra structured context for the error payload.
	Details any

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField records the first offending argument name.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithRetryAfter records a retry-after hint in seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.RetryAfter = seconds
	return e
}

// WithDetails attaches structured context.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithCause wraps a causal error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// CodeOf extracts the code from an error, or Unknown for uncoded errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return Unknown
}

// As is a convenience wrapper over errors.As for *Error targets.
func As(err error) (*Error, bool) {
	var coded *Error
	ok := errors.As(err, &coded)
	return coded, ok
}
