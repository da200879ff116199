package simulator

import (
	"context"
	"fmt"
	"os/exec"
)

// LogStreamCommand builds the simctl log stream command for a
// simulator, filtered to UI faults, crashes, the maestro driver and
// (when set) the app under test.
func LogStreamCommand(ctx context.Context, selector, appID string) (*exec.Cmd, error) {
	if _, err := FindSimctlBinary(); err != nil {
		return nil, err
	}
	udid, err := ResolveUDID(selector)
	if err != nil {
		return nil, err
	}

	predicate := `subsystem == "com.apple.UIKit" OR messageType == 21 OR ` +
		`subsystem CONTAINS "ReactNative" OR process == "maestro"`
	if appID != "" {
		predicate += fmt.Sprintf(` OR (processImagePath CONTAINS "%s" AND messageType >= 16)`, appID)
	}

	return exec.CommandContext(ctx, "xcrun", "simctl", "spawn", udid,
		"log", "stream", "--style", "compact", "--predicate", predicate), nil
}
