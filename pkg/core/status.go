package core

// RunStatus represents the status of a recorded run (flow, smoke step,
// watch session).
type RunStatus int

const (
	StatusPending RunStatus = iota // Not yet started
	StatusRunning                  // Currently executing
	StatusPassed                   // Completed successfully
	StatusFailed                   // The flow or check reported failure
	StatusErrored                  // Unexpected error (infrastructure, timeout, crash)
	StatusSkipped                  // Not run (filtered out or previous failure)
)

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ParseRunStatus maps a stored status string back onto the enum. Unknown
// strings come back as StatusPending.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "running":
		return StatusRunning
	case "passed":
		return StatusPassed
	case "failed":
		return StatusFailed
	case "errored":
		return StatusErrored
	case "skipped":
		return StatusSkipped
	default:
		return StatusPending
	}
}

// IsTerminal returns true if the status is a final state
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s RunStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone    ErrorCategory = iota // No error
	ErrCategoryTool                         // External tool missing or exited nonzero
	ErrCategoryTimeout                      // Operation timed out
	ErrCategoryDevice                       // No booted device, capture failed
	ErrCategoryFlow                         // Flow run failed
	ErrCategoryConfig                       // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryTool:
		return "tool"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryFlow:
		return "flow"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
