package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/device"
	"github.com/devicelab-dev/tether/pkg/emulator"
	"github.com/devicelab-dev/tether/pkg/platform"
)

// androidChecks runs the adb/emulator health checks in dependency
// order, stopping early when adb itself is missing.
func androidChecks(ctx context.Context, cfg *config.Config, autoFix bool, report *Report) {
	adbCheck := timed("adb installed", true, func() (string, error) {
		return device.FindADB()
	})
	report.Add(adbCheck)
	if !adbCheck.Passed {
		return
	}
	adbPath := adbCheck.Message

	serverCheck := checkADBServer()
	if !serverCheck.Passed && autoFix {
		_ = exec.CommandContext(ctx, adbPath, "start-server").Run()
		serverCheck = checkADBServer()
	}
	report.Add(serverCheck)

	report.Add(timed("avd exists", true, func() (string, error) {
		avds, err := emulator.ListAVDs()
		if err != nil {
			return "emulator command failed", err
		}
		names := make([]string, 0, len(avds))
		for _, avd := range avds {
			if avd.Name == cfg.AVD {
				return cfg.AVD, nil
			}
			names = append(names, avd.Name)
		}
		return fmt.Sprintf("%s not found. Available: %s", cfg.AVD, strings.Join(names, ", ")),
			fmt.Errorf("avd %s not found", cfg.AVD)
	}))

	report.Add(checkMaestro(ctx, cfg))

	p, err := platform.New(cfg)
	if err != nil {
		report.Add(Check{Name: "emulator running", Message: err.Error(), Critical: true})
		return
	}
	running := checkDeviceRunning(ctx, "emulator running", p, autoFix)
	report.Add(running)
	if !running.Passed {
		return
	}

	report.Add(timed("adb connection", true, func() (string, error) {
		dev, err := device.FirstAvailable()
		if err != nil {
			return "", err
		}
		out, err := dev.Shell("echo ok")
		if err != nil || !strings.Contains(out, "ok") {
			return "failed", fmt.Errorf("adb shell echo: %v", err)
		}
		return "connected", nil
	}))

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

	// uiautomator can hang on some emulator images, so a failure here
	// only warns.
	report.Add(timed("ui dump", false, func() (string, error) {
		raw, err := p.DumpRaw(ctx)
		if err != nil {
			return "dump failed", err
		}
		if !strings.Contains(raw, "hierarchy") {
			return "dump failed", fmt.Errorf("unexpected dump output")
		}
		return "works", nil
	}))
}

func checkADBServer() Check {
	return timed("adb server", true, func() (string, error) {
		if _, err := device.ListDevices(); err != nil {
			return "failed", err
		}
		return "running", nil
	})
}
