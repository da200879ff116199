package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/tether/pkg/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{Kind: "flow", Name: "login", Platform: "android", Status: core.StatusPassed, StartTime: base, Duration: 3 * time.Second},
		{Kind: "flow", Name: "checkout", Platform: "android", Status: core.StatusFailed, StartTime: base.Add(time.Minute), ExitCode: 1, Error: "assertion failed"},
		{Kind: "smoke", Name: "smoke", Platform: "ios", Status: core.StatusPassed, StartTime: base.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		if _, err := store.Record(run); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(got))
	}

	// Newest first.
	if got[0].Name != "smoke" {
		t.Errorf("got[0].Name = %s, want smoke", got[0].Name)
	}
	if got[2].Name != "login" {
		t.Errorf("got[2].Name = %s, want login", got[2].Name)
	}

	// Fields roundtrip.
	if got[1].Status != core.StatusFailed {
		t.Errorf("got[1].Status = %s, want failed", got[1].Status)
	}
	if got[1].ExitCode != 1 {
		t.Errorf("got[1].ExitCode = %d, want 1", got[1].ExitCode)
	}
	if !got[2].StartTime.Equal(base) {
		t.Errorf("got[2].StartTime = %v, want %v", got[2].StartTime, base)
	}
	if got[2].Duration != 3*time.Second {
		t.Errorf("got[2].Duration = %v, want 3s", got[2].Duration)
	}
}

func TestStore_Recent_Limit(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := Run{Kind: "flow", Name: "f", Status: core.StatusPassed, StartTime: base.Add(time.Duration(i) * time.Minute)}
		if _, err := store.Record(run); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 runs, got %d", len(got))
	}
}

func TestStore_RecordGeneratesID(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Record(Run{Kind: "flow", Name: "login", Status: core.StatusPassed})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Error("expected generated ID")
	}
}

func TestStore_Finish(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Record(Run{Kind: "watch", Name: "session", Status: core.StatusRunning})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Finish(id, core.StatusPassed, 90*time.Second, 0, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := store.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != core.StatusPassed {
		t.Errorf("Status = %s, want passed", got[0].Status)
	}
	if got[0].Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", got[0].Duration)
	}
}

func TestStore_Finish_UnknownID(t *testing.T) {
	store := openTestStore(t)

	err := store.Finish("no-such-run", core.StatusPassed, 0, 0, "")
	if err == nil {
		t.Fatal("expected error for unknown run id")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_LastError(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []Run{
		{Kind: "flow", Name: "old-fail", Status: core.StatusFailed, StartTime: base, Error: "first failure"},
		{Kind: "flow", Name: "ok", Status: core.StatusPassed, StartTime: base.Add(time.Minute)},
		{Kind: "flow", Name: "new-fail", Status: core.StatusErrored, StartTime: base.Add(2 * time.Minute), Error: "boot timeout"},
		{Kind: "flow", Name: "ok-after", Status: core.StatusPassed, StartTime: base.Add(3 * time.Minute)},
	}
	for _, run := range seed {
		if _, err := store.Record(run); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.LastError()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a last error run")
	}
	if got.Name != "new-fail" {
		t.Errorf("Name = %s, want new-fail", got.Name)
	}
	if got.Error != "boot timeout" {
		t.Errorf("Error = %q, want boot timeout", got.Error)
	}
}

func TestStore_LastError_NoFailures(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Record(Run{Kind: "flow", Name: "ok", Status: core.StatusPassed}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LastError()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestStore_RecordSuite(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite := &core.SuiteResult{
		Name:      "smoke",
		RunID:     "suite-123",
		StartTime: base,
		Duration:  2 * time.Minute,
		Flows: []core.FlowResult{
			{Name: "login", Status: core.StatusPassed, StartTime: base},
			{Name: "checkout", Status: core.StatusFailed, StartTime: base.Add(time.Minute), Error: "boom"},
		},
	}

	if err := store.RecordSuite("android", suite); err != nil {
		t.Fatalf("record suite: %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 { // two flows + summary row
		t.Fatalf("expected 3 rows, got %d", len(got))
	}

	var summary *Run
	for i := range got {
		if got[i].Kind == "smoke" {
			summary = &got[i]
		}
	}
	if summary == nil {
		t.Fatal("missing smoke summary row")
	}
	if summary.ID != "suite-123" {
		t.Errorf("summary ID = %s, want suite-123", summary.ID)
	}
	if summary.Status != core.StatusFailed {
		t.Errorf("summary Status = %s, want failed", summary.Status)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Path() = %s, want %s", store.Path(), path)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsLockError(t *testing.T) {
	if !isLockError(errors.New("database is locked")) {
		t.Error("expected locked message to match")
	}
	if isLockError(errors.New("syntax error")) {
		t.Error("syntax error should not match")
	}
	if isLockError(nil) {
		t.Error("nil should not match")
	}
}
