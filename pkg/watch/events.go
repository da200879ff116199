package watch

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// watchEvents lists the accessibility event types that trigger a
// snapshot. Everything else the stream prints (clicks, focus moves,
// scroll ticks) is ignored.
var watchEvents = []string{
	"TYPE_WINDOW_STATE_CHANGED",
	"TYPE_WINDOW_CONTENT_CHANGED",
}

// ParseEventLine extracts the snapshot-worthy event type from one line
// of the device event stream. Returns "" for lines to ignore.
func ParseEventLine(line string) string {
	for _, evt := range watchEvents {
		if strings.Contains(line, evt) {
			return evt
		}
	}
	return ""
}

// eventStream runs the device event subprocess and remembers the most
// recent snapshot-worthy event together with its arrival time.
type eventStream struct {
	cmd      *exec.Cmd
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	eventType string
	eventTime time.Time
}

// startEventStream launches cmd and begins scanning its stdout.
func startEventStream(cmd *exec.Cmd) (*eventStream, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("events pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start events: %w", err)
	}

	s := &eventStream{cmd: cmd, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			evt := ParseEventLine(scanner.Text())
			if evt == "" {
				continue
			}
			s.mu.Lock()
			s.eventType = evt
			s.eventTime = time.Now()
			s.mu.Unlock()
		}
	}()
	return s, nil
}

// Pending returns the waiting event and when it arrived, or "" when
// nothing happened since the last Clear.
func (s *eventStream) Pending() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventType, s.eventTime
}

// Clear forgets the pending event.
func (s *eventStream) Clear() {
	s.mu.Lock()
	s.eventType = ""
	s.mu.Unlock()
}

// Alive reports whether the stream is still producing output.
func (s *eventStream) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Stop kills the subprocess and waits for the scanner to drain. Safe to
// call more than once. The uiautomator service serves one client at a
// time, so the stream must be stopped before any hierarchy dump.
func (s *eventStream) Stop() {
	s.stopOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		<-s.done
		s.cmd.Wait()
	})
}
