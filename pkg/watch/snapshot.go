package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/platform"
	"github.com/devicelab-dev/tether/pkg/uitree"
)

// ManifestEntry records one captured snapshot in the session manifest.
type ManifestEntry struct {
	Snapshot     int               `json:"snapshot"`
	Timestamp    string            `json:"timestamp"`
	EventType    string            `json:"eventType"`
	ElementCount int               `json:"elementCount"` // -1 when the dump failed
	ScreenTitle  string            `json:"screenTitle,omitempty"`
	SelectedTab  string            `json:"selectedTab,omitempty"`
	Clickable    int               `json:"clickable"`
	Added        int               `json:"added"`
	Removed      int               `json:"removed"`
	LogLines     int               `json:"logLines"`
	Crashes      []string          `json:"crashes,omitempty"`
	Files        map[string]string `json:"files"`
}

// logLine is the artifact form of one drained log entry.
type logLine struct {
	Time    string `json:"time,omitempty"`
	Level   string `json:"level,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

func logView(e logs.Entry) logLine {
	v := logLine{Time: e.Time, Tag: e.Tag, Message: e.Message}
	if v.Message == "" {
		v.Message = e.Raw
	}
	if e.Level != logs.LevelUnknown {
		v.Level = e.Level.String()
	}
	return v
}

// logViews converts drained entries to their artifact form, returning
// crash lines separately for the manifest.
func logViews(entries []logs.Entry) ([]logLine, []string) {
	views := make([]logLine, 0, len(entries))
	var crashes []string
	for _, e := range entries {
		views = append(views, logView(e))
		if e.IsCrash() {
			crashes = append(crashes, e.Raw)
		}
	}
	return views, crashes
}

// screenSummary is the short screen context derived from the elements.
type screenSummary struct {
	Title     string
	Selected  string
	Clickable int
}

// summarize extracts the screen title (first capitalized text element),
// the selected tab, and the clickable count.
func summarize(elements []*uitree.Element) screenSummary {
	var s screenSummary
	for _, el := range elements {
		if s.Selected == "" && el.HasFlag(uitree.FlagSelected) {
			s.Selected = el.Identifier
			if s.Selected == "" {
				s.Selected = el.Label
			}
		}
		if s.Title == "" && el.Role == uitree.RoleText {
			if r, _ := utf8.DecodeRuneInString(el.Label); unicode.IsUpper(r) && utf8.RuneCountInString(el.Label) > 1 {
				s.Title = el.Label
			}
		}
		if el.HasFlag(uitree.FlagClickable) {
			s.Clickable++
		}
	}
	return s
}

// snapshotter captures numbered screen/element/log artifacts into the
// session directory and maintains the manifest. Not safe for concurrent
// use; the session loop is the only caller.
type snapshotter struct {
	p      platform.Platform
	logs   *logs.Collector // nil when the platform has no log source
	dir    string
	asJSON bool
	out    io.Writer
	errOut io.Writer

	num       int
	lastHash  string
	lastElems []*uitree.Element
	manifest  []ManifestEntry
	crashes   int
}

// take captures one snapshot. Returns false when the screen has not
// changed since the last capture and the snapshot was skipped; the
// error is only non-nil when artifacts could not be written.
func (s *snapshotter) take(ctx context.Context, eventType string) (bool, error) {
	ts := time.Now().UTC().Format(time.RFC3339)

	shot, err := s.p.Screenshot(ctx)
	if err != nil {
		fmt.Fprintf(s.errOut, "screenshot failed: %v\n", err)
		shot = nil
	}

	elementCount := -1
	dumpOK := false
	var elementsJSON []byte
	elements, err := platform.Elements(ctx, s.p)
	if err != nil {
		fmt.Fprintf(s.errOut, "element dump failed: %v\n", err)
		elements = nil
	} else {
		dumpOK = true
		elementCount = len(elements)
		if elements == nil {
			elements = []*uitree.Element{}
		}
		elementsJSON, err = json.MarshalIndent(elements, "", "  ")
		if err != nil {
			return false, fmt.Errorf("encode elements: %w", err)
		}
	}

	// Skip unchanged screens, except for the first capture and full
	// window transitions, which are always recorded.
	var hash string
	if elementsJSON != nil {
		sum := sha256.Sum256(elementsJSON)
		hash = hex.EncodeToString(sum[:])
	}
	if eventType != "INITIAL" && eventType != "TYPE_WINDOW_STATE_CHANGED" {
		if hash != "" && hash == s.lastHash {
			return false, nil
		}
	}
	if hash != "" {
		s.lastHash = hash
	}

	s.num++
	prefix := fmt.Sprintf("%03d", s.num)
	files := make(map[string]string)

	if shot != nil {
		path := filepath.Join(s.dir, prefix+"-screen.png")
		if err := os.WriteFile(path, shot, 0o644); err != nil { //#nosec G306 -- session artifacts are read by other tools
			return false, fmt.Errorf("write screenshot: %w", err)
		}
		files["screen"] = path
	}
	if elementsJSON != nil {
		path := filepath.Join(s.dir, prefix+"-elements.json")
		if err := os.WriteFile(path, elementsJSON, 0o644); err != nil { //#nosec G306 -- session artifacts are read by other tools
			return false, fmt.Errorf("write elements: %w", err)
		}
		files["elements"] = path
	}

	var entries []logs.Entry
	if s.logs != nil {
		entries = s.logs.Drain()
	}
	views, crashLines := logViews(entries)
	if len(views) > 0 {
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return false, fmt.Errorf("encode log entries: %w", err)
		}
		path := filepath.Join(s.dir, prefix+"-logcat.json")
		if err := os.WriteFile(path, data, 0o644); err != nil { //#nosec G306 -- session artifacts are read by other tools
			return false, fmt.Errorf("write log entries: %w", err)
		}
		files["logcat"] = path
	}
	s.crashes += len(crashLines)

	summary := summarize(elements)
	var added, removed int
	if dumpOK {
		diff := uitree.Compare(s.lastElems, elements)
		added, removed = len(diff.Added), len(diff.Removed)
		s.lastElems = elements
	}

	entry := ManifestEntry{
		Snapshot:     s.num,
		Timestamp:    ts,
		EventType:    eventType,
		ElementCount: elementCount,
		ScreenTitle:  summary.Title,
		SelectedTab:  summary.Selected,
		Clickable:    summary.Clickable,
		Added:        added,
		Removed:      removed,
		LogLines:     len(views),
		Crashes:      crashLines,
		Files:        files,
	}
	s.manifest = append(s.manifest, entry)
	if err := s.writeManifest(); err != nil {
		return false, err
	}

	s.announce(entry)
	return true, nil
}

// writeManifest rewrites the full manifest atomically so readers never
// observe a truncated file.
func (s *snapshotter) writeManifest() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp := s.manifestPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //#nosec G306 -- session artifacts are read by other tools
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, s.manifestPath()); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

func (s *snapshotter) manifestPath() string {
	return filepath.Join(s.dir, "manifest.json")
}

// announce prints one line per snapshot: the manifest entry in JSON
// mode, a short human-readable summary otherwise.
func (s *snapshotter) announce(entry ManifestEntry) {
	if s.asJSON {
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintln(s.out, string(data))
		return
	}

	line := fmt.Sprintf("[%s] #%d (%s) %d elements",
		time.Now().Format("15:04:05"), entry.Snapshot, entry.EventType, entry.ElementCount)
	if entry.SelectedTab != "" {
		line += fmt.Sprintf(" [%s]", entry.SelectedTab)
	}
	if entry.ScreenTitle != "" {
		line += " " + entry.ScreenTitle
	}
	fmt.Fprintln(s.out, line)
}
