package simulator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FindAxeBinary locates the axe accessibility inspector CLI.
func FindAxeBinary() (string, error) {
	path, err := exec.LookPath("axe")
	if err != nil {
		return "", fmt.Errorf("axe not found; install it with: brew install cameroncooke/axe/axe")
	}
	return path, nil
}

// DescribeUI captures the accessibility hierarchy of a simulator as raw
// JSON via the axe CLI.
func DescribeUI(ctx context.Context, udid string) (string, error) {
	axePath, err := FindAxeBinary()
	if err != nil {
		return "", err
	}

	resolved, err := ResolveUDID(udid)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, axePath, "describe-ui", "--udid", resolved)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("axe describe-ui: %w: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("axe describe-ui: %w", err)
	}
	return string(out), nil
}

// Screenshot captures the simulator screen as PNG bytes.
func Screenshot(ctx context.Context, udid string) ([]byte, error) {
	if _, err := FindSimctlBinary(); err != nil {
		return nil, err
	}

	resolved, err := ResolveUDID(udid)
	if err != nil {
		return nil, err
	}

	// simctl writes to a file, not stdout
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("tether-screen-%d.png", os.Getpid()))
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, "xcrun", "simctl", "io", resolved, "screenshot", "--type=png", tmp)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("simctl screenshot: %s", strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	return data, nil
}
