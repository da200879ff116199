package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: tool_not_found, device_not_running, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches ExecutionErrors by code, so errors.Is recognizes copies
// produced by the With* helpers as their sentinel.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Tool errors
	ErrToolNotFound = &ExecutionError{
		Category: ErrCategoryTool,
		Code:     "tool_not_found",
		Message:  "required tool not found on PATH",
	}
	ErrToolFailed = &ExecutionError{
		Category: ErrCategoryTool,
		Code:     "tool_failed",
		Message:  "tool exited with an error",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
	ErrBootTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "boot_timeout",
		Message:  "device did not finish booting in time",
	}

	// Device errors
	ErrDeviceNotRunning = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "device_not_running",
		Message:  "no booted device found",
	}
	ErrDumpFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "dump_failed",
		Message:  "could not capture ui dump",
	}
	ErrScreenshotFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "screenshot_failed",
		Message:  "could not capture screenshot",
	}

	// Flow errors
	ErrFlowFailed = &ExecutionError{
		Category: ErrCategoryFlow,
		Code:     "flow_failed",
		Message:  "flow run failed",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
