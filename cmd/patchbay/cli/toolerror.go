// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies a command failure so callers and scripts
// can decide whether to fix input, retry, or report.
type ErrorCategory string

const (
	// CategoryValidation: bad arguments. Fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a named plugin or file does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden: the caller cannot reach a socket or file.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient: the broker is not running or timed out.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: an I/O failure or bug.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error with an optional hint
// printed after the message.
type ToolError struct {
	Category ErrorCategory
	Err      error
	Hint     string
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns e for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
