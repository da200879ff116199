package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/doctor"
	"github.com/devicelab-dev/tether/pkg/history"
	"github.com/devicelab-dev/tether/pkg/platform"
)

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "Check the environment for the configured platform",
	Description: `Run environment health checks: SDK tools resolvable, device configured
and booted, maestro on PATH, home directory writable.

Examples:
  tether doctor
  tether doctor --fix
  tether -p ios doctor`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "fix",
			Usage: "Attempt to repair recoverable problems (boot device, restart adb)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the report as JSON",
		},
	},
	Action: runDoctor,
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show platform, device and last-run summary",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
	},
	Action: runStatus,
}

var bootCommand = &cli.Command{
	Name:  "boot",
	Usage: "Boot the configured emulator or simulator and wait until ready",
	Description: `Start the configured device (avd/simulator in tether.yaml) unless one
is already booted. Waits up to the boot timeout.`,
	Action: runBoot,
}

func runDoctor(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	report := doctor.Run(c.Context, cfg, c.Bool("fix"))

	if c.Bool("json") {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("%sEnvironment (%s)%s\n", color(colorBold), cfg.Platform, color(colorReset))
		for _, check := range report.Checks {
			printCheck(check)
		}
		if report.AllPassed() {
			fmt.Printf("\n%s✓ All checks passed%s\n", color(colorGreen), color(colorReset))
		} else if report.CriticalPassed() {
			fmt.Printf("\n%s⚠ Ready, with warnings: %s%s\n",
				color(colorYellow), strings.Join(report.Warnings(), ", "), color(colorReset))
		} else {
			fmt.Printf("\n%s✗ Not ready: %s%s\n",
				color(colorRed), strings.Join(report.Failed(), ", "), color(colorReset))
		}
	}

	if !report.CriticalPassed() {
		return cli.Exit("", 1)
	}
	return nil
}

func printCheck(check doctor.Check) {
	dur := ""
	if check.Duration >= 100*time.Millisecond {
		dur = fmt.Sprintf(" %s(%s)%s", color(colorGray),
			check.Duration.Round(10*time.Millisecond), color(colorReset))
	}
	switch {
	case check.Passed:
		fmt.Printf("  %s✓%s %-20s %s%s\n", color(colorGreen), color(colorReset),
			check.Name, check.Message, dur)
	case check.Critical:
		fmt.Printf("  %s✗%s %-20s %s%s\n", color(colorRed), color(colorReset),
			check.Name, check.Message, dur)
	default:
		fmt.Printf("  %s⚠%s %-20s %s%s\n", color(colorYellow), color(colorReset),
			check.Name, check.Message, dur)
	}
}

// statusView is the JSON shape of the status command.
type statusView struct {
	Platform string           `json:"platform"`
	Device   *platform.Status `json:"device,omitempty"`
	Error    string           `json:"error,omitempty"`
	LastRun  *history.Run     `json:"lastRun,omitempty"`
}

func runStatus(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	view := statusView{Platform: cfg.Platform}

	p, err := platform.New(cfg)
	if err != nil {
		return err
	}
	st, err := p.Status(c.Context)
	if err != nil {
		view.Error = err.Error()
	} else {
		view.Device = st
	}

	// Last run is informational; a missing or locked history db is not
	// a status failure.
	if store, err := history.Open(config.GetHistoryPath()); err == nil {
		if runs, err := store.Recent(1); err == nil && len(runs) > 0 {
			view.LastRun = &runs[0]
		}
		store.Close()
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%sPlatform:%s %s\n", color(colorBold), color(colorReset), view.Platform)
	switch {
	case view.Error != "":
		printFailure("device: " + view.Error)
	case view.Device != nil && view.Device.Booted:
		detail := view.Device.Device
		if view.Device.Model != "" {
			detail = fmt.Sprintf("%s (%s, %s)", view.Device.Model, view.Device.Device, view.Device.OSVersion)
		}
		printSuccess("device booted: " + detail)
	case view.Device != nil && view.Device.Running:
		printWarning("device running but not booted: " + view.Device.Device)
	default:
		printWarning("no device running")
	}
	if view.LastRun != nil {
		fmt.Printf("%sLast run:%s %s %s: %s (%s ago)\n",
			color(colorBold), color(colorReset),
			view.LastRun.Kind, view.LastRun.Name, view.LastRun.Status,
			time.Since(view.LastRun.StartTime).Round(time.Second))
	}
	return nil
}

func runBoot(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	p, err := platform.New(cfg)
	if err != nil {
		return err
	}

	printStep(fmt.Sprintf("Booting %s device...", cfg.Platform))
	start := time.Now()
	if err := p.Boot(c.Context); err != nil {
		printFailure(err.Error())
		return cli.Exit("", 1)
	}
	printSuccess(fmt.Sprintf("Device ready in %s", time.Since(start).Round(time.Second)))
	return nil
}
