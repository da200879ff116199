package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/history"
	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/maestro"
	"github.com/devicelab-dev/tether/pkg/platform"
	"github.com/devicelab-dev/tether/pkg/progress"
)

var flowCommand = &cli.Command{
	Name:      "flow",
	Usage:     "Run one maestro flow against the device",
	ArgsUsage: "<name|path>",
	Description: `Run a flow file through the external maestro CLI. The argument is a
path, or a name resolved under the configured flows directory. Device
logs are collected for the duration of the run; on failure the crash
or error lines are printed after the runner output.

Examples:
  tether flow login
  tether flow flows/checkout.yaml`,
	Action: runFlow,
}

var smokeCommand = &cli.Command{
	Name:      "smoke",
	Usage:     "Run every flow in a directory and record progress",
	ArgsUsage: "[dir]",
	Description: `Run all flows under the directory (default: the configured flows
directory) in name order, continuing past failures. Outcomes update
the progress file so the next smoke run can skip already-passing
flows with --failed.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "failed",
			Usage: "Only rerun flows that have not passed yet",
		},
	},
	Action: runSmoke,
}

var progressCommand = &cli.Command{
	Name:  "progress",
	Usage: "Show per-flow pass/fail state from past smoke runs",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
	},
	Action: runProgress,
}

var lastErrorCommand = &cli.Command{
	Name:   "last-error",
	Usage:  "Show the most recent failed run",
	Action: runLastError,
}

func runFlow(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: tether flow <name|path>")
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	flowPath, err := cfg.ResolveFlow(c.Args().First())
	if err != nil {
		return err
	}

	runner, err := maestro.NewRunner(cfg)
	if err != nil {
		return err
	}

	collector := startLogs(c, cfg)
	if collector != nil {
		defer collector.Stop()
	}

	printStep(fmt.Sprintf("Running %s on %s...", maestro.FlowName(flowPath), cfg.Platform))
	result, err := runner.Run(c.Context, cfg.Platform, flowPath, os.Stdout)
	if err != nil {
		return err
	}

	recordFlow(cfg.Platform, result)
	progress.Mark(config.GetProgressPath(), flowPath, !result.Failed(), result.Error)

	if result.Failed() {
		printFailure(fmt.Sprintf("%s %s in %s", result.Name, result.Status,
			result.Duration.Round(time.Millisecond)))
		if line := maestro.ErrorLine(result.Tail); line != "" {
			fmt.Printf("    %s%s%s\n", color(colorDim), line, color(colorReset))
		}
		printDeviceErrors(collector)
		fmt.Printf("    %sfull output: %s%s\n", color(colorGray), result.OutputPath, color(colorReset))
		return cli.Exit("", 1)
	}

	printSuccess(fmt.Sprintf("%s passed in %s", result.Name,
		result.Duration.Round(time.Millisecond)))
	return nil
}

// startLogs begins device log collection, or returns nil when the
// platform has no log source. Log capture is best effort for flow runs.
func startLogs(c *cli.Context, cfg *config.Config) *logs.Collector {
	p, err := platform.New(cfg)
	if err != nil {
		return nil
	}
	collector, err := p.Logs(c.Context)
	if err != nil {
		printWarning("log capture unavailable: " + err.Error())
		return nil
	}
	return collector
}

// printDeviceErrors surfaces the crash block (preferred) or the recent
// error lines collected during the run.
func printDeviceErrors(collector *logs.Collector) {
	if collector == nil {
		return
	}
	entries := collector.LastCrash()
	header := "device crash:"
	if len(entries) == 0 {
		entries = collector.Errors()
		header = "device errors:"
	}
	if len(entries) == 0 {
		return
	}
	fmt.Printf("    %s%s%s\n", color(colorYellow), header, color(colorReset))
	for _, e := range entries {
		fmt.Printf("      %s%s%s\n", color(colorDim), e.Raw, color(colorReset))
	}
}

// recordFlow persists the run outcome; history is informational and a
// failure to write it never fails the command.
func recordFlow(platformName string, result *core.FlowResult) {
	store, err := history.Open(config.GetHistoryPath())
	if err != nil {
		return
	}
	defer store.Close()
	store.RecordFlow(platformName, result)
}

func runSmoke(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	dir := c.Args().First()
	if dir == "" {
		dir = cfg.FlowsDir
	}
	flows, err := maestro.FindFlows(dir)
	if err != nil {
		return err
	}

	prog := progress.Load(config.GetProgressPath())
	if c.Bool("failed") {
		pending := flows[:0]
		for _, f := range flows {
			if !prog.IsPassed(f) {
				pending = append(pending, f)
			}
		}
		flows = pending
	}
	if len(flows) == 0 {
		printSuccess("nothing to run")
		return nil
	}

	runner, err := maestro.NewRunner(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%sSmoke: %d flow(s) on %s%s\n", color(colorBold), len(flows), cfg.Platform, color(colorReset))
	suite := runner.RunSuite(c.Context, filepath.Base(dir), cfg.Platform, flows, nil)

	for _, f := range suite.Flows {
		switch f.Status {
		case core.StatusPassed:
			printSuccess(fmt.Sprintf("%-30s %s", f.Name, f.Duration.Round(time.Millisecond)))
		case core.StatusSkipped:
			fmt.Printf("  %s-%s %-30s skipped\n", color(colorGray), color(colorReset), f.Name)
		default:
			msg := f.Error
			if line := maestro.ErrorLine(f.Tail); line != "" {
				msg = line
			}
			printFailure(fmt.Sprintf("%-30s %s", f.Name, msg))
		}
		if f.Status != core.StatusSkipped {
			prog.Mark(f.FilePath, f.Status == core.StatusPassed, f.Error)
		}
	}
	if err := prog.Save(config.GetProgressPath()); err != nil {
		printWarning("save progress: " + err.Error())
	}
	if store, err := history.Open(config.GetHistoryPath()); err == nil {
		store.RecordSuite(cfg.Platform, suite)
		store.Close()
	}

	fmt.Printf("\n%s%d passed, %d failed, %d skipped%s in %s\n",
		color(colorBold), suite.PassedFlows, suite.FailedFlows, suite.SkippedFlows,
		color(colorReset), suite.Duration.Round(time.Second))

	if !suite.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

func runProgress(c *cli.Context) error {
	prog := progress.Load(config.GetProgressPath())

	if c.Bool("json") {
		out, err := json.MarshalIndent(prog, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(prog.Flows) == 0 {
		fmt.Println("no smoke runs recorded yet")
		return nil
	}

	paths := make([]string, 0, len(prog.Flows))
	for path := range prog.Flows {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		rec := prog.Flows[path]
		age := time.Since(rec.Timestamp).Round(time.Minute)
		if rec.Passed {
			printSuccess(fmt.Sprintf("%-40s passed %s ago", path, age))
		} else {
			printFailure(fmt.Sprintf("%-40s %s (%s ago)", path, rec.Error, age))
		}
	}
	return nil
}

func runLastError(c *cli.Context) error {
	store, err := history.Open(config.GetHistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LastError()
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("no failed runs recorded")
		return nil
	}

	fmt.Printf("%s%s %s%s: %s, %s ago\n",
		color(colorBold), run.Kind, run.Name, color(colorReset),
		run.Status, time.Since(run.StartTime).Round(time.Second))
	if run.Error != "" {
		printFailure(run.Error)
	}
	if run.Artifact != "" {
		fmt.Printf("  %sfull output: %s%s\n", color(colorGray), run.Artifact, color(colorReset))
	}
	return nil
}
