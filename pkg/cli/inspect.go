package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/history"
	"github.com/devicelab-dev/tether/pkg/platform"
	"github.com/devicelab-dev/tether/pkg/uitree"
	"github.com/devicelab-dev/tether/pkg/watch"
)

var screenCommand = &cli.Command{
	Name:      "screen",
	Usage:     "Capture a screenshot",
	ArgsUsage: "[path]",
	Description: `Capture the device screen to a PNG. Without a path the file goes into
the artifacts directory with a timestamped name.`,
	Action: runScreen,
}

var elementsCommand = &cli.Command{
	Name:  "elements",
	Usage: "List the visible UI elements",
	Description: `Dump the accessibility hierarchy, filter structural noise and print one
line per element:

  @1 "Welcome" text []
  @2 "Login" button [clickable]

Refs (@N) are positions within this single listing; they are reassigned
on every call and must never be reused across calls.

Examples:
  tether elements
  tether elements --json
  tether elements --file dump.xml -p android`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output elements as JSON",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Parse a saved raw dump instead of capturing from the device",
		},
	},
	Action: runElements,
}

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "Capture a screenshot and element listing in one shot",
	Description: `Capture the screen and the UI hierarchy concurrently, write both into
the artifacts directory as a matched pair, and print the element
listing. The pair shares a timestamp prefix so a later viewer can
correlate them.`,
	Action: runInspect,
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Record UI snapshots whenever the screen changes",
	Description: `Watch the device until the timeout (or Ctrl-C), writing a numbered
screenshot/elements/log snapshot into the session directory each time
the visible UI changes. On Android the session is driven by the
uiautomator event stream with a debounce; elsewhere it polls.

Examples:
  tether watch --timeout 60s
  tether watch --interval 3s --json`,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Debounce quiet period (event mode) or poll interval",
			Value:   watch.DefaultDebounce,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Stop after this long (0 watches until interrupted)",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Session directory (default: <home>/watch, cleared at start)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Emit snapshot announcements as JSON lines",
		},
	},
	Action: runWatch,
}

func runScreen(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	p, err := platform.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, cfg.ScreenshotTimeout())
	defer cancel()

	shot, err := p.Screenshot(ctx)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = filepath.Join(config.GetArtifactsDir(),
			time.Now().Format("20060102-150405")+"-screen.png")
	}
	if err := os.WriteFile(path, shot, 0o644); err != nil { //#nosec G306 -- screenshots are opened by other tools
		return fmt.Errorf("write screenshot: %w", err)
	}

	fmt.Println(path)
	return nil
}

func runElements(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	var elements []*uitree.Element
	if file := c.String("file"); file != "" {
		adapter, err := platform.AdapterFor(cfg.Platform)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(file) //#nosec G304 -- user-provided dump file
		if err != nil {
			return err
		}
		elements, err = uitree.Normalize(adapter, string(raw))
		if err != nil {
			return err
		}
	} else {
		p, err := platform.New(cfg)
		if err != nil {
			return err
		}
		elements, err = platform.Elements(c.Context, p)
		if err != nil {
			return err
		}
	}

	return printElements(elements, c.Bool("json"))
}

func printElements(elements []*uitree.Element, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(elements, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	if len(elements) == 0 {
		// Valid observation, e.g. a blank or still-loading screen.
		fmt.Fprintln(os.Stderr, "no visible elements")
		return nil
	}
	fmt.Println(uitree.RenderList(elements))
	return nil
}

func runInspect(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	p, err := platform.New(cfg)
	if err != nil {
		return err
	}

	var (
		shot     []byte
		elements []*uitree.Element
	)
	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		shotCtx, cancel := context.WithTimeout(ctx, cfg.ScreenshotTimeout())
		defer cancel()
		var err error
		shot, err = p.Screenshot(shotCtx)
		return err
	})
	g.Go(func() error {
		var err error
		elements, err = platform.Elements(ctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	stamp := time.Now().Format("20060102-150405")
	shotPath := filepath.Join(config.GetArtifactsDir(), stamp+"-screen.png")
	elemPath := filepath.Join(config.GetArtifactsDir(), stamp+"-elements.json")

	if err := os.WriteFile(shotPath, shot, 0o644); err != nil { //#nosec G306 -- screenshots are opened by other tools
		return fmt.Errorf("write screenshot: %w", err)
	}
	elemJSON, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(elemPath, elemJSON, 0o644); err != nil { //#nosec G306 -- artifacts are opened by other tools
		return fmt.Errorf("write elements: %w", err)
	}

	if err := printElements(elements, false); err != nil {
		return err
	}
	fmt.Println()
	printSuccess("screenshot: " + shotPath)
	printSuccess("elements:   " + elemPath)
	return nil
}

func runWatch(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	p, err := platform.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	opts := watch.Options{
		Dir:      c.String("dir"),
		Debounce: c.Duration("interval"),
		Timeout:  c.Duration("timeout"),
		JSON:     c.Bool("json"),
	}

	start := time.Now()
	summary, err := watch.Run(ctx, p, opts, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	// Best effort: a locked history db must not fail the session.
	if store, oerr := history.Open(config.GetHistoryPath()); oerr == nil {
		store.Record(history.Run{
			Kind:      "watch",
			Name:      "watch",
			Platform:  cfg.Platform,
			Status:    core.StatusPassed,
			StartTime: start,
			Duration:  time.Since(start),
			Artifact:  summary.Manifest,
		})
		store.Close()
	}

	fmt.Fprintf(os.Stderr, "captured %d snapshot(s) in %s\n", summary.Snapshots, summary.Dir)
	if summary.Crashes > 0 {
		printWarning(fmt.Sprintf("%d crash(es) observed; see the snapshot logs", summary.Crashes))
	}
	return nil
}
