// Package maestro runs flow files through the maestro CLI.
package maestro

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/logger"
	"github.com/google/uuid"
)

// tailSize is how many trailing output lines are kept on a failed run.
const tailSize = 20

// maxLineSize bounds scanner buffers against pathological output lines.
const maxLineSize = 1024 * 1024

// Runner executes flow files by shelling out to the maestro CLI. The
// flows themselves are opaque; only the exit code and output are
// interpreted.
type Runner struct {
	binary string

	// FlowTimeout bounds a single flow run. Zero means no limit.
	FlowTimeout time.Duration
}

// NewRunner locates the maestro binary and configures timeouts from cfg.
func NewRunner(cfg *config.Config) (*Runner, error) {
	bin, err := FindMaestroBinary()
	if err != nil {
		return nil, err
	}
	return &Runner{binary: bin, FlowTimeout: cfg.FlowTimeout()}, nil
}

// FindMaestroBinary locates the maestro CLI on PATH, falling back to the
// default install location under the user's home.
func FindMaestroBinary() (string, error) {
	if path, err := exec.LookPath("maestro"); err == nil {
		return path, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".maestro", "bin", "maestro")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", core.ErrToolNotFound.WithMessage(
		"maestro not found on PATH (install: curl -Ls https://get.maestro.mobile.dev | bash)")
}

// Version reports the installed maestro CLI version.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.binary, "--version").Output()
	if err != nil {
		return "", core.ErrToolFailed.WithMessage("maestro --version failed").WithCause(err)
	}
	return parseVersion(string(out)), nil
}

// parseVersion extracts the version number from maestro --version output,
// which may be preceded by update-notice banner lines.
func parseVersion(output string) string {
	var first string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		if line[0] >= '0' && line[0] <= '9' {
			return line
		}
	}
	return first
}

// Run executes a single flow file against the given platform. Output is
// streamed to out (when non-nil) and persisted under the artifacts
// directory. Subprocess failures are encoded in the result; the error
// return is reserved for problems that prevented the run from starting.
func (r *Runner) Run(ctx context.Context, platform, flowPath string, out io.Writer) (*core.FlowResult, error) {
	result := &core.FlowResult{
		Name:      FlowName(flowPath),
		FilePath:  flowPath,
		Status:    core.StatusRunning,
		StartTime: time.Now(),
	}

	if err := config.EnsureHome(); err != nil {
		return nil, fmt.Errorf("failed to prepare artifacts dir: %w", err)
	}
	artifactPath := filepath.Join(config.GetArtifactsDir(),
		fmt.Sprintf("%s-%s.log", result.StartTime.Format("20060102-150405"), result.Name))
	logFile, err := os.Create(artifactPath) //#nosec G304 -- path derived from home dir
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	result.OutputPath = artifactPath

	if r.FlowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.FlowTimeout)
		defer cancel()
	}

	logger.Info("Running flow %s on %s", flowPath, platform)
	cmd := exec.CommandContext(ctx, r.binary, "test", "-p", platform, flowPath)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	tail := newTailBuffer(tailSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			tail.Add(line)
			fmt.Fprintln(logFile, line)
			if out != nil {
				fmt.Fprintln(out, line)
			}
		}
	}()

	runErr := cmd.Run()
	pw.Close()
	<-done
	logFile.Close()

	result.Duration = time.Since(result.StartTime)
	result.ExitCode = exitCode(cmd, runErr)

	switch {
	case runErr == nil:
		result.Status = core.StatusPassed
		logger.Info("Flow %s passed in %s", result.Name, result.Duration.Round(time.Millisecond))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Status = core.StatusErrored
		result.Category = core.ErrCategoryTimeout
		result.Error = "flow run timed out"
		result.Tail = tail.Lines()
		logger.Error("Flow %s timed out after %s", result.Name, result.Duration.Round(time.Second))
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.Status = core.StatusFailed
			result.Category = core.ErrCategoryFlow
			result.Error = fmt.Sprintf("maestro exited with code %d", result.ExitCode)
		} else {
			// maestro never started
			result.Status = core.StatusErrored
			result.Category = core.ErrCategoryTool
			result.Error = runErr.Error()
		}
		result.Tail = tail.Lines()
		logger.Error("Flow %s failed: %s", result.Name, result.Error)
	}

	return result, nil
}

// RunSuite executes each flow in order, continuing past failures so a
// single broken flow does not hide results for the rest. Flows left
// after the context is cancelled are recorded as skipped.
func (r *Runner) RunSuite(ctx context.Context, name, platform string, flows []string, out io.Writer) *core.SuiteResult {
	suite := &core.SuiteResult{
		Name:      name,
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}

	for _, flowPath := range flows {
		if ctx.Err() != nil {
			suite.Flows = append(suite.Flows, core.FlowResult{
				Name:     FlowName(flowPath),
				FilePath: flowPath,
				Status:   core.StatusSkipped,
			})
			continue
		}

		result, err := r.Run(ctx, platform, flowPath, out)
		if err != nil {
			result = &core.FlowResult{
				Name:     FlowName(flowPath),
				FilePath: flowPath,
				Status:   core.StatusErrored,
				Category: core.ErrCategoryTool,
				Error:    err.Error(),
			}
		}
		suite.Flows = append(suite.Flows, *result)
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	return suite
}

// exitCode extracts the subprocess exit code, -1 when unavailable.
func exitCode(cmd *exec.Cmd, runErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if runErr == nil {
		return 0
	}
	return -1
}

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	max   int
	lines []string
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Add(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}
