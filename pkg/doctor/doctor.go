// Package doctor runs environment health checks and suggests fixes.
package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/maestro"
	"github.com/devicelab-dev/tether/pkg/platform"
)

var errNotRunning = errors.New("device not running")

// Check is the outcome of a single health check.
type Check struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// Report collects check results for one doctor run.
type Report struct {
	Checks []Check `json:"checks"`
}

func (r *Report) Add(c Check) {
	r.Checks = append(r.Checks, c)
}

// CriticalPassed reports whether every critical check passed.
// Non-critical failures downgrade to warnings.
func (r *Report) CriticalPassed() bool {
	for _, c := range r.Checks {
		if c.Critical && !c.Passed {
			return false
		}
	}
	return true
}

// AllPassed reports whether every check passed.
func (r *Report) AllPassed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the names of failed critical checks.
func (r *Report) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if c.Critical && !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Warnings returns the names of failed non-critical checks.
func (r *Report) Warnings() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Critical && !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Run executes the health checks for the configured platform. With
// autoFix, recoverable problems (stopped adb server, unbooted device)
// are repaired before re-checking.
func Run(ctx context.Context, cfg *config.Config, autoFix bool) *Report {
	report := &Report{}

	report.Add(timed("config valid", true, func() (string, error) {
		if err := cfg.Validate(); err != nil {
			return "", err
		}
		return cfg.Platform, nil
	}))
	if !report.CriticalPassed() {
		return report
	}

	switch cfg.Platform {
	case "android":
		androidChecks(ctx, cfg, autoFix, report)
	case "ios":
		iosChecks(ctx, cfg, autoFix, report)
	case "mock":
		report.Add(Check{Name: "mock device", Passed: true, Message: "ready", Critical: true})
	}

	return report
}

// checkMaestro verifies the maestro CLI is installed and responsive.
func checkMaestro(ctx context.Context, cfg *config.Config) Check {
	return timed("maestro installed", true, func() (string, error) {
		runner, err := maestro.NewRunner(cfg)
		if err != nil {
			return "not found in PATH", err
		}
		version, err := runner.Version(ctx)
		if err != nil {
			return "version check failed", err
		}
		return version, nil
	})
}

// checkDeviceRunning reports the booted state, booting first when
// autoFix is set.
func checkDeviceRunning(ctx context.Context, name string, p platform.Platform, autoFix bool) Check {
	check := timed(name, true, func() (string, error) {
		status, err := p.Status(ctx)
		if err != nil {
			return "", err
		}
		if !status.Booted {
			return "not running", errNotRunning
		}
		if status.Device != "" {
			return status.Device, nil
		}
		return "yes", nil
	})

	if !check.Passed && autoFix {
		if err := p.Boot(ctx); err == nil {
			check = checkDeviceRunning(ctx, name, p, false)
		}
	}
	return check
}

// timed runs fn and wraps its outcome with the elapsed duration. On
// error the returned message is used when non-empty, otherwise the
// error text.
func timed(name string, critical bool, fn func() (string, error)) Check {
	start := time.Now()
	msg, err := fn()
	check := Check{
		Name:     name,
		Message:  msg,
		Duration: time.Since(start),
		Critical: critical,
	}
	if err != nil {
		check.Passed = false
		if check.Message == "" {
			check.Message = err.Error()
		}
		return check
	}
	check.Passed = true
	return check
}
