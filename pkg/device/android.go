// Package device provides Android device access via ADB.
package device

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// AndroidDevice manages an Android device connection via ADB.
type AndroidDevice struct {
	serial  string
	adbPath string
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial     string
	Model      string
	SDK        string
	Brand      string
	IsEmulator bool
}

// ListedDevice is one row of `adb devices` output.
type ListedDevice struct {
	Serial string
	State  string
}

// NoDevicesError reports that no usable device was found, with
// actionable suggestions for the user.
type NoDevicesError struct {
	Message       string
	AvailableAVDs []string
	Suggestions   []string
}

func (e *NoDevicesError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.AvailableAVDs) > 0 {
		b.WriteString("\n\nAvailable AVDs:\n")
		for _, avd := range e.AvailableAVDs {
			b.WriteString("  - " + avd + "\n")
		}
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\nOptions:\n")
		for _, s := range e.Suggestions {
			b.WriteString("  - " + s + "\n")
		}
	}
	return b.String()
}

// New creates an AndroidDevice for the given serial.
// If serial is empty, it auto-detects the connected device.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := FindADB()
	if err != nil {
		return nil, err
	}

	// Auto-detect serial if not provided
	if serial == "" {
		devices, err := ListDevices()
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
		for _, dev := range devices {
			if dev.State == "device" {
				serial = dev.Serial
				break
			}
		}
		if serial == "" {
			return nil, buildNoDevicesError()
		}
	}

	d := &AndroidDevice{
		serial:  serial,
		adbPath: adbPath,
	}

	// Verify device is connected
	if err := d.waitForDevice(5 * time.Second); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}

	return d, nil
}

// FirstAvailable connects to the first device in "device" state.
func FirstAvailable() (*AndroidDevice, error) {
	return New("")
}

// ListDevices returns the devices adb currently knows about.
func ListDevices() ([]ListedDevice, error) {
	adbPath, err := FindADB()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(adbPath, "devices")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}

	return parseDeviceList(string(out)), nil
}

// parseDeviceList parses `adb devices` output.
func parseDeviceList(out string) []ListedDevice {
	var devices []ListedDevice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, ListedDevice{Serial: parts[0], State: parts[1]})
		}
	}
	return devices
}

// buildNoDevicesError assembles a NoDevicesError, listing AVDs when the
// emulator binary is reachable.
func buildNoDevicesError() *NoDevicesError {
	e := &NoDevicesError{
		Message: "No Android devices or emulators found",
		Suggestions: []string{
			"Connect a physical device via USB",
			"Boot the configured AVD: tether boot",
		},
	}

	if emulatorPath, err := findEmulator(); err == nil {
		if out, err := exec.Command(emulatorPath, "-list-avds").Output(); err == nil {
			for _, line := range strings.Split(string(out), "\n") {
				if avd := strings.TrimSpace(line); avd != "" {
					e.AvailableAVDs = append(e.AvailableAVDs, avd)
				}
			}
		}
	}
	if len(e.AvailableAVDs) > 0 {
		e.Suggestions = append(e.Suggestions,
			fmt.Sprintf("Start emulator: emulator -avd %s", e.AvailableAVDs[0]))
	}

	return e
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// ADBPath returns the adb binary path used for this device.
func (d *AndroidDevice) ADBPath() string {
	return d.adbPath
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(cmd string) (string, error) {
	return d.adb("shell", cmd)
}

// BootCompleted reports whether the device finished booting.
func (d *AndroidDevice) BootCompleted() bool {
	out, err := d.Shell("getprop sys.boot_completed")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "1"
}

// Info returns device information.
func (d *AndroidDevice) Info() (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	if model, err := d.Shell("getprop ro.product.model"); err == nil {
		info.Model = strings.TrimSpace(model)
	}
	if sdk, err := d.Shell("getprop ro.build.version.sdk"); err == nil {
		info.SDK = strings.TrimSpace(sdk)
	}
	if brand, err := d.Shell("getprop ro.product.brand"); err == nil {
		info.Brand = strings.TrimSpace(brand)
	}

	// Check if emulator
	chars, _ := d.Shell("getprop ro.kernel.qemu")
	info.IsEmulator = strings.TrimSpace(chars) == "1"

	return info, nil
}

// adb executes an ADB command.
func (d *AndroidDevice) adb(args ...string) (string, error) {
	out, err := d.adbRaw(args...)
	return string(out), err
}

// adbRaw executes an ADB command and returns raw stdout bytes. Needed
// for binary payloads like screenshots.
func (d *AndroidDevice) adbRaw(args ...string) ([]byte, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(d.adbPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return nil, fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, errMsg)
	}

	return stdout.Bytes(), nil
}

// waitForDevice waits for the device to be available.
func (d *AndroidDevice) waitForDevice(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if d.isConnected() {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for device %s", d.serial)
}

// isConnected checks if the device is connected.
func (d *AndroidDevice) isConnected() bool {
	out, err := d.adb("get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// FindADB locates the ADB binary.
func FindADB() (string, error) {
	// Try PATH first
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}

	// Try ANDROID_HOME
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		candidate := filepath.Join(home, "platform-tools", "adb")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}

// findEmulator locates the emulator launcher binary.
func findEmulator() (string, error) {
	if path, err := exec.LookPath("emulator"); err == nil {
		return path, nil
	}
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		candidate := filepath.Join(home, "emulator", "emulator")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("emulator not found in PATH or ANDROID_HOME")
}
