package core

import (
	"time"
)

// FlowResult captures the complete outcome of running a single flow file
type FlowResult struct {
	// Identity
	Name     string `json:"name"`
	FilePath string `json:"filePath"`

	// Status
	Status   RunStatus     `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	ExitCode   int      `json:"exitCode"`
	OutputPath string   `json:"outputPath,omitempty"` // Full runner output on disk
	Tail       []string `json:"tail,omitempty"`       // Last output lines, kept when the run fails

	// Error info (if the run failed)
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run ended in failure or error.
func (f *FlowResult) Failed() bool {
	return f.Status == StatusFailed || f.Status == StatusErrored
}

// SuiteResult captures the complete outcome of running multiple flows
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"` // Unique execution ID

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Flows []FlowResult `json:"flows"`

	// Summary
	TotalFlows   int `json:"totalFlows"`
	PassedFlows  int `json:"passedFlows"`
	FailedFlows  int `json:"failedFlows"`
	SkippedFlows int `json:"skippedFlows"`
}

// ComputeSummary calculates flow counts from the Flows slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalFlows = len(s.Flows)
	s.PassedFlows = 0
	s.FailedFlows = 0
	s.SkippedFlows = 0

	for _, f := range s.Flows {
		switch f.Status {
		case StatusPassed:
			s.PassedFlows++
		case StatusFailed, StatusErrored:
			s.FailedFlows++
		case StatusSkipped:
			s.SkippedFlows++
		}
	}
}

// AggregateStatus determines the suite status from flow results
// Rules:
// - Any failed/errored flow → StatusFailed
// - No flows at all → StatusErrored
// - Otherwise → StatusPassed
func (s *SuiteResult) AggregateStatus() RunStatus {
	if len(s.Flows) == 0 {
		return StatusErrored
	}
	for _, f := range s.Flows {
		if f.Failed() {
			return StatusFailed
		}
	}
	return StatusPassed
}

// Success returns true if every flow passed
func (s *SuiteResult) Success() bool {
	for _, f := range s.Flows {
		if !f.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Flows) > 0
}
