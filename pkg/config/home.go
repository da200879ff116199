package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "TETHER_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the tether home directory.
//
// Resolution order:
//  1. $TETHER_HOME environment variable
//  2. ~/.tether
//  3. Current working directory (development fallback)
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogsDir returns <home>/logs.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

// GetArtifactsDir returns <home>/artifacts.
func GetArtifactsDir() string {
	return filepath.Join(GetHome(), "artifacts")
}

// GetWatchDir returns <home>/watch, the live snapshot session
// directory. Each watch run clears and reuses it.
func GetWatchDir() string {
	return filepath.Join(GetHome(), "watch")
}

// GetProgressPath returns <home>/progress.json.
func GetProgressPath() string {
	return filepath.Join(GetHome(), "progress.json")
}

// GetHistoryPath returns <home>/history.db.
func GetHistoryPath() string {
	return filepath.Join(GetHome(), "history.db")
}

// EnsureHome creates the home directory tree if it is missing.
func EnsureHome() error {
	for _, dir := range []string{GetHome(), GetLogsDir(), GetArtifactsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func resolveHome() string {
	// 1. Environment variable
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// 2. ~/.tether
	if userHome, err := os.UserHomeDir(); err == nil {
		return filepath.Join(userHome, ".tether")
	}

	// 3. Current working directory
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
