package maestro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFlows lists the flow files in dir, sorted by name. Hidden files
// and config.yaml (the maestro workspace config, not a flow) are
// skipped.
func FindFlows(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read flows dir: %w", err)
	}

	var flows []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "config.yaml" || name == "config.yml" {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		flows = append(flows, filepath.Join(dir, name))
	}

	sort.Strings(flows)
	return flows, nil
}

// FlowName derives a display name from a flow file path.
func FlowName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ErrorLine picks the first line of runner output that looks like a
// failure reason, truncated for display.
func ErrorLine(lines []string) string {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "assert") ||
			strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") {
			line = strings.TrimSpace(line)
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return ""
}
