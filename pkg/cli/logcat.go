package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/platform"
)

var logcatCommand = &cli.Command{
	Name:  "logcat",
	Usage: "Collect and print recent device log lines",
	Description: `Stream the device log for a short window, classify each line, and
print the result. Useful right after a failed interaction to see what
the app logged.

Examples:
  tether logcat
  tether logcat --for 10s --severity error
  tether logcat --severity crash`,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "for",
			Usage: "How long to collect before printing",
			Value: 3 * time.Second,
		},
		&cli.StringFlag{
			Name:  "severity",
			Usage: "Filter: all, error or crash",
			Value: "all",
		},
		&cli.IntFlag{
			Name:    "lines",
			Aliases: []string{"n"},
			Usage:   "Maximum lines to print (severity all)",
			Value:   100,
		},
	},
	Action: runLogcat,
}

func runLogcat(c *cli.Context) error {
	severity := c.String("severity")
	switch severity {
	case "all", "error", "crash":
	default:
		return fmt.Errorf("unknown severity %q (use all, error or crash)", severity)
	}

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	p, err := platform.New(cfg)
	if err != nil {
		return err
	}

	collector, err := p.Logs(c.Context)
	if err != nil {
		return err
	}
	if collector == nil {
		fmt.Println("platform has no log source")
		return nil
	}

	// Let the stream replay the device's buffered backlog plus a little
	// live output before draining.
	select {
	case <-time.After(c.Duration("for")):
	case <-c.Context.Done():
	}
	collector.Stop()

	var entries []logs.Entry
	switch severity {
	case "crash":
		entries = logs.LastCrashBlock(collector.Drain())
		if len(entries) == 0 {
			fmt.Println("no crash found in the collected window")
			return nil
		}
	case "error":
		entries = collector.Errors()
	default:
		entries = collector.Recent(c.Int("lines"))
	}

	for _, e := range entries {
		printLogEntry(e)
	}
	return nil
}

func printLogEntry(e logs.Entry) {
	switch {
	case e.IsCrash():
		fmt.Printf("%s%s%s\n", color(colorRed), e.Raw, color(colorReset))
	case e.IsError():
		fmt.Printf("%s%s%s\n", color(colorYellow), e.Raw, color(colorReset))
	default:
		fmt.Println(e.Raw)
	}
}
