// Package simulator manages iOS simulators via simctl.
package simulator

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/devicelab-dev/tether/pkg/logger"
)

// FindSimctlBinary verifies that xcrun/simctl is available.
func FindSimctlBinary() (string, error) {
	path, err := exec.LookPath("xcrun")
	if err != nil {
		return "", fmt.Errorf("xcrun not found; install Xcode Command Line Tools: xcode-select --install")
	}
	return path, nil
}

// simctlDevicesOutput represents the JSON output from xcrun simctl list devices.
type simctlDevicesOutput struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

type simctlDevice struct {
	Name        string `json:"name"`
	UDID        string `json:"udid"`
	State       string `json:"state"`
	IsAvailable bool   `json:"isAvailable"`
}

// List returns all available iOS simulators.
func List() ([]Device, error) {
	if _, err := FindSimctlBinary(); err != nil {
		return nil, err
	}

	cmd := exec.Command("xcrun", "simctl", "list", "devices", "available", "-j")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list simulators: %w", err)
	}

	sims, err := parseDeviceList(output)
	if err != nil {
		return nil, err
	}

	logger.Debug("Found %d available simulators", len(sims))
	return sims, nil
}

// parseDeviceList parses `simctl list devices -j` output.
func parseDeviceList(output []byte) ([]Device, error) {
	var data simctlDevicesOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return nil, fmt.Errorf("failed to parse simctl output: %w", err)
	}

	var sims []Device
	for runtime, devices := range data.Devices {
		osVersion := extractOSVersion(runtime)
		for _, dev := range devices {
			if !dev.IsAvailable {
				continue
			}
			sims = append(sims, Device{
				Name:        dev.Name,
				UDID:        dev.UDID,
				Runtime:     runtime,
				OSVersion:   osVersion,
				State:       dev.State,
				IsAvailable: dev.IsAvailable,
			})
		}
	}
	return sims, nil
}

// ResolveUDID maps a simulator selector to a concrete UDID. The selector
// can be "booted", a device name, or already a UDID.
func ResolveUDID(selector string) (string, error) {
	sims, err := List()
	if err != nil {
		return "", err
	}

	if selector == "" || selector == "booted" {
		for _, sim := range sims {
			if sim.State == "Booted" {
				return sim.UDID, nil
			}
		}
		return "", fmt.Errorf("no booted simulator found")
	}

	selectorLower := strings.ToLower(selector)
	for _, sim := range sims {
		if sim.UDID == selector || strings.ToLower(sim.Name) == selectorLower {
			return sim.UDID, nil
		}
	}
	return "", fmt.Errorf("simulator not found: %s", selector)
}

// Booted returns the first simulator in "Booted" state, if any.
func Booted() (*Device, error) {
	sims, err := List()
	if err != nil {
		return nil, err
	}
	for _, sim := range sims {
		if sim.State == "Booted" {
			return &sim, nil
		}
	}
	return nil, nil
}

// CheckBootStatus checks if a simulator is booted.
func CheckBootStatus(udid string) (*BootStatus, error) {
	sims, err := List()
	if err != nil {
		return nil, err
	}
	for _, sim := range sims {
		if sim.UDID == udid {
			return &BootStatus{Booted: sim.State == "Booted"}, nil
		}
	}
	return nil, fmt.Errorf("simulator not found: %s", udid)
}

// WaitForBoot waits for a simulator to reach "Booted" state.
func WaitForBoot(udid string, timeout time.Duration) error {
	logger.Info("Waiting for simulator boot: %s", udid)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		status, err := CheckBootStatus(udid)
		if err != nil {
			logger.Debug("Boot check error: %v", err)
			<-ticker.C
			continue
		}
		if status.IsReady() {
			logger.Info("Simulator booted: %s", udid)
			return nil
		}
		<-ticker.C
	}

	return fmt.Errorf("simulator boot timeout after %v", timeout)
}

// Boot boots an iOS simulator and waits for it to be ready.
func Boot(udid string, timeout time.Duration) error {
	logger.Info("Booting simulator: %s", udid)

	cmd := exec.Command("xcrun", "simctl", "boot", udid)
	if output, err := cmd.CombinedOutput(); err != nil {
		// Check if already booted
		if strings.Contains(string(output), "current state: Booted") {
			logger.Info("Simulator already booted: %s", udid)
			return nil
		}
		return fmt.Errorf("failed to boot simulator: %s", strings.TrimSpace(string(output)))
	}

	// Wait for boot to complete
	if err := WaitForBoot(udid, timeout); err != nil {
		return err
	}

	// Open the Simulator UI
	openCmd := exec.Command("open", "-a", "Simulator")
	if err := openCmd.Run(); err != nil {
		logger.Debug("Failed to open Simulator app: %v", err)
	}

	return nil
}

// Shutdown gracefully shuts down a simulator.
func Shutdown(udid string, timeout time.Duration) error {
	logger.Info("Shutting down simulator: %s", udid)

	cmd := exec.Command("xcrun", "simctl", "shutdown", udid)
	if output, err := cmd.CombinedOutput(); err != nil {
		// Check if already shutdown
		if strings.Contains(string(output), "current state: Shutdown") {
			logger.Info("Simulator already shutdown: %s", udid)
			return nil
		}
		logger.Warn("simctl shutdown failed for %s: %s", udid, strings.TrimSpace(string(output)))
	}

	// Poll until shutdown confirmed
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		status, err := CheckBootStatus(udid)
		if err != nil || !status.Booted {
			logger.Info("Simulator shutdown confirmed: %s", udid)
			return nil
		}
		<-ticker.C
	}

	return fmt.Errorf("simulator shutdown timeout after %v", timeout)
}

// extractOSVersion extracts version from runtime string.
// e.g., "com.apple.CoreSimulator.SimRuntime.iOS-17-2" -> "17.2"
func extractOSVersion(runtime string) string {
	// Find "iOS-" prefix and extract version
	idx := strings.LastIndex(runtime, "iOS-")
	if idx == -1 {
		// Try other platforms (watchOS, tvOS, visionOS)
		for _, prefix := range []string{"watchOS-", "tvOS-", "xrOS-"} {
			idx = strings.LastIndex(runtime, prefix)
			if idx != -1 {
				version := runtime[idx+len(prefix):]
				return strings.ReplaceAll(version, "-", ".")
			}
		}
		return ""
	}
	version := runtime[idx+4:] // skip "iOS-"
	return strings.ReplaceAll(version, "-", ".")
}
