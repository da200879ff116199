// Package cli provides the command-line interface for tether.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to inspect (android, ios, mock)",
		EnvVars: []string{"TETHER_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to tether.yaml (default: search upward from cwd)",
		EnvVars: []string{"TETHER_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Mirror the log file to stderr",
		EnvVars: []string{"TETHER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "tether",
		Usage:   "Device UI inspection for AI coding agents",
		Version: Version,
		Description: `Tether gives an automated caller one uniform way to see the screen of a
running Android emulator or iOS simulator: a normalized, noise-filtered
element listing with short refs, screenshots, change watching, and flow
running via maestro.

Examples:
  tether doctor
  tether elements --json
  tether watch --timeout 60s
  tether flow login`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			doctorCommand,
			statusCommand,
			bootCommand,
			screenCommand,
			elementsCommand,
			inspectCommand,
			watchCommand,
			flowCommand,
			smokeCommand,
			progressCommand,
			logcatCommand,
			lastErrorCommand,
			mcpCommand,
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			if err := config.EnsureHome(); err != nil {
				return fmt.Errorf("prepare tether home: %w", err)
			}
			logPath := filepath.Join(config.GetLogsDir(),
				time.Now().Format("20060102")+".log")
			if err := logger.Init(logPath); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.SetVerbose(c.Bool("verbose"))
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig builds the effective configuration for one command:
// defaults, then the config file (--config or the nearest tether.yaml),
// then environment, then the --platform flag on top.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Resolve()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if p := c.String("platform"); p != "" {
		cfg.Platform = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
