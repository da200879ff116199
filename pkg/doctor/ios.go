package doctor

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/platform"
	"github.com/devicelab-dev/tether/pkg/simulator"
)

// iosChecks runs the simctl/axe health checks, stopping early when the
// Xcode tools are missing.
func iosChecks(ctx context.Context, cfg *config.Config, autoFix bool, report *Report) {
	simctlCheck := timed("xcrun simctl", true, func() (string, error) {
		path, err := simulator.FindSimctlBinary()
		if err != nil {
			return "Xcode tools not installed", err
		}
		return path, nil
	})
	report.Add(simctlCheck)
	if !simctlCheck.Passed {
		return
	}

	report.Add(timed("axe installed", true, func() (string, error) {
		return simulator.FindAxeBinary()
	}))

	report.Add(checkMaestro(ctx, cfg))

	p, err := platform.New(cfg)
	if err != nil {
		report.Add(Check{Name: "simulator running", Message: err.Error(), Critical: true})
		return
	}
	running := checkDeviceRunning(ctx, "simulator running", p, autoFix)
	report.Add(running)
	if !running.Passed {
		return
	}

	report.Add(timed("screenshot", true, func() (string, error) {
		png, err := p.Screenshot(ctx)
		if err != nil {
			return "capture failed", err
		}
		if len(png) < 1000 {
			return "capture failed", fmt.Errorf("screenshot too small: %d bytes", len(png))
		}
		return fmt.Sprintf("%d bytes", len(png)), nil
	}))

	report.Add(timed("element dump", true, func() (string, error) {
		raw, err := p.DumpRaw(ctx)
		if err != nil {
			return "dump failed", err
		}
		if len(raw) == 0 {
			return "dump failed", fmt.Errorf("empty axe output")
		}
		return "works (axe)", nil
	}))
}
