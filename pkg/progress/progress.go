// Package progress tracks per-flow pass/fail state in a small JSON
// file, so interrupted smoke runs can resume where they left off.
package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// maxErrorLen bounds stored error text.
const maxErrorLen = 200

// FlowRecord is the last known outcome for one flow file.
type FlowRecord struct {
	Passed    bool      `json:"passed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress maps flow paths to their last outcome.
type Progress struct {
	Flows map[string]FlowRecord `json:"flows"`
}

// New returns an empty progress record.
func New() *Progress {
	return &Progress{Flows: make(map[string]FlowRecord)}
}

// Load reads the progress file at path. A missing or unreadable file
// yields an empty record, matching the merge-on-save behavior.
func Load(path string) *Progress {
	p := New()
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from the tether home dir
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, p); err != nil {
		return New()
	}
	if p.Flows == nil {
		p.Flows = make(map[string]FlowRecord)
	}
	return p
}

// Save writes the progress file, creating parent directories as needed.
func (p *Progress) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Mark records the outcome for a flow, stamped with the current time.
func (p *Progress) Mark(flow string, passed bool, errText string) {
	if p.Flows == nil {
		p.Flows = make(map[string]FlowRecord)
	}
	if len(errText) > maxErrorLen {
		errText = errText[:maxErrorLen]
	}
	if passed {
		errText = ""
	}
	p.Flows[flow] = FlowRecord{
		Passed:    passed,
		Error:     errText,
		Timestamp: time.Now().UTC(),
	}
}

// IsPassed reports whether the flow's last recorded run passed.
func (p *Progress) IsPassed(flow string) bool {
	rec, ok := p.Flows[flow]
	return ok && rec.Passed
}

// LastFailure returns the most recently failed flow and its record, or
// "" when every recorded flow passed.
func (p *Progress) LastFailure() (string, FlowRecord) {
	var (
		name   string
		latest FlowRecord
	)
	for flow, rec := range p.Flows {
		if rec.Passed {
			continue
		}
		if name == "" || rec.Timestamp.After(latest.Timestamp) {
			name = flow
			latest = rec
		}
	}
	return name, latest
}

// Mark is a load-modify-save convenience for recording one outcome.
func Mark(path, flow string, passed bool, errText string) error {
	p := Load(path)
	p.Mark(flow, passed, errText)
	return p.Save(path)
}
