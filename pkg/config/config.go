// Package config handles configuration for tether.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the tool configuration (tether.yaml).
type Config struct {
	// Device selection
	Platform  string `yaml:"platform"`  // Target platform: android, ios or mock
	AVD       string `yaml:"avd"`       // Android virtual device name
	Simulator string `yaml:"simulator"` // iOS simulator UDID or name ("booted" when empty)
	AppID     string `yaml:"appId"`     // Application under test (log filtering)

	// SDK location
	AndroidHome string `yaml:"androidHome"`

	// Flow files directory
	FlowsDir string `yaml:"flowsDir"`

	// Timeouts in seconds
	Timeouts Timeouts `yaml:"timeouts"`
}

// Timeouts groups the per-operation limits, in seconds.
type Timeouts struct {
	Boot       int `yaml:"boot"`
	Flow       int `yaml:"flow"`
	Screenshot int `yaml:"screenshot"`
}

// Default returns the built-in configuration.
func Default() *Config {
	androidHome := os.Getenv("ANDROID_HOME")
	if androidHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			androidHome = filepath.Join(home, "Library", "Android", "sdk")
		}
	}
	return &Config{
		Platform:    "android",
		AVD:         "Pixel_XL_API_29",
		AndroidHome: androidHome,
		FlowsDir:    "flows",
		Timeouts: Timeouts{
			Boot:       90,
			Flow:       180,
			Screenshot: 10,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find walks up from dir looking for tether.yaml or tether.yml. Returns
// "" when no config file exists anywhere above.
func Find(dir string) string {
	current, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, name := range []string{"tether.yaml", "tether.yml"} {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// Resolve builds the effective configuration: defaults, then the nearest
// config file above the working directory, then environment overrides.
func Resolve() (*Config, error) {
	cfg := Default()

	cwd, err := os.Getwd()
	if err == nil {
		if path := Find(cwd); path != "" {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers environment variables over everything else.
func (c *Config) applyEnv() {
	if v := os.Getenv("TETHER_PLATFORM"); v != "" {
		c.Platform = v
	}
	if v := os.Getenv("TETHER_AVD"); v != "" {
		c.AVD = v
	}
	if v := os.Getenv("TETHER_SIMULATOR"); v != "" {
		c.Simulator = v
	}
	if v := os.Getenv("TETHER_APP_ID"); v != "" {
		c.AppID = v
	}
	if v := os.Getenv("ANDROID_HOME"); v != "" {
		c.AndroidHome = v
	}
}

// Validate checks the configuration for values the commands cannot work with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Platform,
			validation.Required,
			validation.In("android", "ios", "mock"),
		),
		validation.Field(&c.Timeouts),
	)
}

// Validate checks the timeout ranges.
func (t Timeouts) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Boot, validation.Min(1), validation.Max(3600)),
		validation.Field(&t.Flow, validation.Min(1), validation.Max(3600)),
		validation.Field(&t.Screenshot, validation.Min(1), validation.Max(600)),
	)
}

// EmulatorBin returns the path of the emulator launcher inside the SDK.
func (c *Config) EmulatorBin() string {
	return filepath.Join(c.AndroidHome, "emulator", "emulator")
}

// SimulatorOrBooted returns the configured simulator, defaulting to the
// currently booted one.
func (c *Config) SimulatorOrBooted() string {
	if c.Simulator == "" {
		return "booted"
	}
	return c.Simulator
}

// ResolveFlow locates a flow file by name. Paths that exist as given are
// used directly; otherwise the name is looked up under FlowsDir, trying
// .yaml and .yml suffixes.
func (c *Config) ResolveFlow(name string) (string, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name, nil
	}

	candidates := []string{name, name + ".yaml", name + ".yml"}
	for _, candidate := range candidates {
		path := filepath.Join(c.FlowsDir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("flow %q not found in %s", name, c.FlowsDir)
}

// BootTimeout returns the boot limit as a duration.
func (c *Config) BootTimeout() time.Duration {
	return time.Duration(c.Timeouts.Boot) * time.Second
}

// FlowTimeout returns the flow-run limit as a duration.
func (c *Config) FlowTimeout() time.Duration {
	return time.Duration(c.Timeouts.Flow) * time.Second
}

// ScreenshotTimeout returns the capture limit as a duration.
func (c *Config) ScreenshotTimeout() time.Duration {
	return time.Duration(c.Timeouts.Screenshot) * time.Second
}
