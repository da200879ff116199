package device

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Device-side path uiautomator writes the hierarchy to.
const dumpPath = "/sdcard/ui.xml"

// shellFunc runs one device shell command and returns its output.
type shellFunc func(ctx context.Context, args ...string) (string, error)

// DumpUI captures the current UI hierarchy and returns the raw XML.
// When the full dump fails (uiautomator frequently reports "could not
// get idle state" on busy screens) it retries once with the compressed
// hierarchy, which skips the idle wait.
func (d *AndroidDevice) DumpUI(ctx context.Context) (string, error) {
	return dumpUI(ctx, d.shellCtx)
}

func dumpUI(ctx context.Context, shell shellFunc) (string, error) {
	if err := runDump(ctx, shell); err != nil {
		if err := runDump(ctx, shell, "--compressed"); err != nil {
			return "", err
		}
	}

	xml, err := shell(ctx, "cat", dumpPath)
	if err != nil {
		return "", fmt.Errorf("read ui dump: %w", err)
	}
	return xml, nil
}

// runDump issues one uiautomator dump invocation. uiautomator reports
// failures on stdout with exit code 0, so the output is checked too.
func runDump(ctx context.Context, shell shellFunc, extraArgs ...string) error {
	args := append([]string{"uiautomator", "dump"}, extraArgs...)
	args = append(args, dumpPath)

	out, err := shell(ctx, args...)
	if err != nil {
		return fmt.Errorf("uiautomator dump: %w", err)
	}
	if strings.Contains(out, "ERROR") {
		return fmt.Errorf("uiautomator dump: %s", strings.TrimSpace(out))
	}
	return nil
}

// Screenshot captures the screen as PNG bytes.
func (d *AndroidDevice) Screenshot(ctx context.Context) ([]byte, error) {
	cmd := d.Command(ctx, "exec-out", "screencap", "-p")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("screencap: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("screencap: empty output")
	}
	return out, nil
}

// WaitForBoot polls sys.boot_completed until the device is up or the
// context expires.
func (d *AndroidDevice) WaitForBoot(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		if d.BootCompleted() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("device %s did not finish booting: %w", d.serial, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ClearLogcat empties the device log buffer.
func (d *AndroidDevice) ClearLogcat() error {
	_, err := d.adb("logcat", "-c")
	return err
}

// Command builds an adb command scoped to this device. Callers use it
// for streaming subprocesses (logcat, uiautomator events).
func (d *AndroidDevice) Command(ctx context.Context, args ...string) *exec.Cmd {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)
	return exec.CommandContext(ctx, d.adbPath, cmdArgs...)
}

// shellCtx runs a device shell command under a context.
func (d *AndroidDevice) shellCtx(ctx context.Context, args ...string) (string, error) {
	shellArgs := append([]string{"shell"}, args...)
	cmd := d.Command(ctx, shellArgs...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("adb shell %s: %w: %s", strings.Join(args, " "), err, ee.Stderr)
		}
		return "", fmt.Errorf("adb shell %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
