package logs

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/devicelab-dev/tether/pkg/logger"
)

// DefaultCapacity is how many recent entries a Collector retains.
const DefaultCapacity = 500

// Collector follows a log stream on a background goroutine and keeps a
// bounded window of recent entries for failure reports.
type Collector struct {
	capacity int
	appID    string // when set, only entries mentioning the app are kept

	mu      sync.Mutex
	entries []Entry
	errs    []Entry

	cmd  *exec.Cmd
	done chan struct{}
}

// NewCollector creates a collector keeping up to capacity entries.
// capacity <= 0 uses DefaultCapacity.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{capacity: capacity}
}

// FilterApp restricts retained entries to lines mentioning appID.
// Must be called before Start.
func (c *Collector) FilterApp(appID string) {
	c.appID = appID
}

// Start launches cmd and begins consuming its stdout. The command is
// typically `adb logcat -v time`.
func (c *Collector) Start(cmd *exec.Cmd) error {
	if c.done != nil {
		return fmt.Errorf("collector already started")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("logcat pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start logcat: %w", err)
	}

	c.cmd = cmd
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		c.consume(stdout)
	}()

	return nil
}

// Stop terminates the log stream and waits for the reader to drain.
func (c *Collector) Stop() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	<-c.done
	c.cmd.Wait()
	c.cmd = nil
	c.done = nil
	logger.Debug("Log collector stopped (%d entries retained)", len(c.entries))
}

// consume reads lines until EOF, classifying as it goes.
func (c *Collector) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.add(ParseLine(scanner.Text()))
	}
}

func (c *Collector) add(e Entry) {
	if c.appID != "" && !matchesApp(e, c.appID) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, e)
	if len(c.entries) > c.capacity {
		c.entries = c.entries[len(c.entries)-c.capacity:]
	}
	if e.IsError() {
		c.errs = append(c.errs, e)
		if len(c.errs) > c.capacity {
			c.errs = c.errs[len(c.errs)-c.capacity:]
		}
	}
}

// matchesApp reports whether the entry plausibly belongs to the app.
// Logcat lines carry the PID, not the package, so this is a substring
// match on tag and message.
func matchesApp(e Entry, appID string) bool {
	if e.Tag == appID {
		return true
	}
	return containsFold(e.Message, appID) || containsFold(e.Tag, appID)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Recent returns up to n of the latest entries, oldest first.
func (c *Collector) Recent(n int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]Entry, n)
	copy(out, c.entries[len(c.entries)-n:])
	return out
}

// Errors returns the retained error-level entries, oldest first.
func (c *Collector) Errors() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, len(c.errs))
	copy(out, c.errs)
	return out
}

// LastCrash returns the most recent crash block from the window, or
// nil when none occurred.
func (c *Collector) LastCrash() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LastCrashBlock(c.entries)
}

// Drain clears the window, returning what was in it.
func (c *Collector) Drain() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.entries
	c.entries = nil
	c.errs = nil
	return out
}

// ScanReader parses a complete log dump, e.g. from `adb logcat -d`.
func ScanReader(r io.Reader) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entries = append(entries, ParseLine(scanner.Text()))
	}
	return entries
}
