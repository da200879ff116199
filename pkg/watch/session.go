// Package watch captures UI snapshots whenever the screen changes,
// building a timestamped session an agent can replay after the fact.
//
// On platforms with an accessibility event stream the session is
// event-driven with a debounce; everywhere else it falls back to
// polling. Each snapshot is a numbered screenshot/elements/log triple
// in the session directory, indexed by an atomically updated
// manifest.json.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/logger"
	"github.com/devicelab-dev/tether/pkg/platform"
)

// DefaultDebounce is the quiet period after the last event before a
// snapshot fires.
const DefaultDebounce = 500 * time.Millisecond

// eventCheckInterval is how often the session loop inspects the
// pending event while waiting for the debounce to elapse.
const eventCheckInterval = 100 * time.Millisecond

var (
	// pollFloor is the minimum poll interval. Dumping the hierarchy
	// faster than this destabilizes uiautomator on slower emulators.
	pollFloor = 2 * time.Second

	// retryDelay is the pause before reconnecting a dead event stream.
	retryDelay = 2 * time.Second
)

// maxStreamRetries bounds consecutive event stream failures before the
// session gives up.
const maxStreamRetries = 3

// Options configure a watch session.
type Options struct {
	Dir      string        // session directory, cleared at start; empty uses <home>/watch
	Debounce time.Duration // quiet period before a snapshot fires; 0 uses DefaultDebounce
	Timeout  time.Duration // total session length; 0 watches until the context ends
	JSON     bool          // emit manifest entries as JSON lines instead of text
}

// Summary reports what a finished session captured.
type Summary struct {
	Snapshots int    `json:"snapshots"`
	Crashes   int    `json:"crashes"`
	Dir       string `json:"dir"`
	Manifest  string `json:"manifest"`
}

// Run watches the device until the timeout or context cancellation,
// writing snapshots to the session directory. Snapshot announcements go
// to out; progress and warnings go to errOut so JSON consumers can pipe
// stdout cleanly.
func Run(ctx context.Context, p platform.Platform, opts Options, out, errOut io.Writer) (*Summary, error) {
	dir := opts.Dir
	if dir == "" {
		dir = config.GetWatchDir()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	// Each session owns the directory; stale artifacts from the last
	// run would corrupt the manifest numbering.
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear session dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	logger.Debug("Watch session dir: %s", dir)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	collector, err := p.Logs(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "log capture unavailable: %v\n", err)
		collector = nil
	}
	if collector != nil {
		defer collector.Stop()
	}

	fmt.Fprintln(errOut, "watching for ui changes...")
	if opts.Timeout > 0 {
		fmt.Fprintf(errOut, "timeout: %s\n", opts.Timeout)
	}
	fmt.Fprintf(errOut, "debounce: %s\n", debounce)

	s := &snapshotter{
		p:      p,
		logs:   collector,
		dir:    dir,
		asJSON: opts.JSON,
		out:    out,
		errOut: errOut,
	}
	if _, err := s.take(ctx, "INITIAL"); err != nil {
		return nil, err
	}

	if ec, ok := p.(platform.EventsCommander); ok {
		err = runEvents(ctx, ec, s, debounce, errOut)
	} else {
		err = runPoll(ctx, s, debounce, errOut)
	}
	if err != nil {
		return nil, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fmt.Fprintln(errOut, "timeout reached")
	}

	return &Summary{
		Snapshots: s.num,
		Crashes:   s.crashes,
		Dir:       dir,
		Manifest:  s.manifestPath(),
	}, nil
}

// runPoll snapshots at a fixed interval. Used when the platform has no
// event stream.
func runPoll(ctx context.Context, s *snapshotter, debounce time.Duration, errOut io.Writer) error {
	interval := debounce
	if interval < pollFloor {
		interval = pollFloor
	}
	fmt.Fprintf(errOut, "poll mode (every %s)\n", interval)

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow() // spend the initial token so the first wait is a full interval
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		if _, err := s.take(ctx, "POLL"); err != nil {
			return err
		}
	}
}

// runEvents drives the event stream, restarting it after every
// snapshot and after crashes, up to maxStreamRetries consecutive
// failures.
func runEvents(ctx context.Context, ec platform.EventsCommander, s *snapshotter, debounce time.Duration, errOut io.Writer) error {
	retries := 0
	for retries < maxStreamRetries {
		if ctx.Err() != nil {
			return nil
		}

		cmd, err := ec.EventsCommand(ctx)
		if err != nil {
			return err
		}
		stream, err := startEventStream(cmd)
		if err != nil {
			fmt.Fprintf(errOut, "failed to start events: %v\n", err)
			retries++
			if retries < maxStreamRetries {
				sleep(ctx, retryDelay)
			}
			continue
		}
		fmt.Fprintln(errOut, "events connected")
		retries = 0

		snapped, err := watchStream(ctx, stream, s, debounce)
		stream.Stop()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if !snapped {
			// The stream died on its own.
			retries++
			if retries < maxStreamRetries {
				fmt.Fprintf(errOut, "reconnecting (%d/%d)...\n", retries, maxStreamRetries)
				sleep(ctx, retryDelay)
			}
		}
	}
	return core.ErrToolFailed.WithMessage(
		fmt.Sprintf("event stream died %d times in a row, giving up", maxStreamRetries))
}

// watchStream waits for a debounced event, then kills the stream and
// snapshots. Returns true when a snapshot was attempted (the stream
// must be restarted), false when the stream ended on its own.
func watchStream(ctx context.Context, stream *eventStream, s *snapshotter, debounce time.Duration) (bool, error) {
	ticker := time.NewTicker(eventCheckInterval)
	defer ticker.Stop()

	for stream.Alive() {
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}

		evt, at := stream.Pending()
		if evt == "" || time.Since(at) < debounce {
			continue
		}
		stream.Clear()

		// uiautomator serves one client at a time; the stream must be
		// gone before the dump can run.
		stream.Stop()
		_, err := s.take(ctx, evt)
		return true, err
	}
	return false, nil
}

// sleep pauses for d or until the context ends.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
