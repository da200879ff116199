// Package history persists run records in a local sqlite database so
// past results survive across invocations.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Run is one recorded invocation: a flow run, a smoke suite, or a watch
// session.
type Run struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"` // flow, smoke, watch
	Name      string         `json:"name"`
	Platform  string         `json:"platform"`
	Status    core.RunStatus `json:"status"`
	StartTime time.Time      `json:"startTime"`
	Duration  time.Duration  `json:"duration"`
	ExitCode  int            `json:"exitCode"`
	Artifact  string         `json:"artifact,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Store wraps the sqlite database holding run history.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record inserts a run. A missing ID is generated, a zero StartTime is
// stamped with now.
func (s *Store) Record(run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now().UTC()
	}

	query := `
INSERT INTO runs (id, kind, name, platform, status, started_at_utc, duration_ms, exit_code, artifact, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err := s.withRetry("record run", func() error {
		_, err := s.db.Exec(
			query,
			run.ID,
			run.Kind,
			run.Name,
			run.Platform,
			run.Status.String(),
			run.StartTime.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.ExitCode,
			run.Artifact,
			run.Error,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// Finish updates a previously recorded run with its final outcome.
func (s *Store) Finish(id string, status core.RunStatus, duration time.Duration, exitCode int, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE runs SET status = ?, duration_ms = ?, exit_code = ?, error = ? WHERE id = ?`
	return s.withRetry("finish run", func() error {
		res, err := s.db.Exec(query, status.String(), duration.Milliseconds(), exitCode, errText, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("run %q not found", id)
		}
		return nil
	})
}

// RecordFlow stores a completed flow result as a single run row.
func (s *Store) RecordFlow(platform string, result *core.FlowResult) (string, error) {
	return s.Record(Run{
		Kind:      "flow",
		Name:      result.Name,
		Platform:  platform,
		Status:    result.Status,
		StartTime: result.StartTime,
		Duration:  result.Duration,
		ExitCode:  result.ExitCode,
		Artifact:  result.OutputPath,
		Error:     result.Error,
	})
}

// RecordSuite stores a completed suite as one row per flow plus a
// summary row carrying the suite's run ID.
func (s *Store) RecordSuite(platform string, suite *core.SuiteResult) error {
	for i := range suite.Flows {
		if _, err := s.RecordFlow(platform, &suite.Flows[i]); err != nil {
			return err
		}
	}
	_, err := s.Record(Run{
		ID:        suite.RunID,
		Kind:      "smoke",
		Name:      suite.Name,
		Platform:  platform,
		Status:    suite.AggregateStatus(),
		StartTime: suite.StartTime,
		Duration:  suite.Duration,
	})
	return err
}

const selectColumns = `id, kind, name, platform, status, started_at_utc, duration_ms, exit_code, artifact, error`

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + selectColumns + ` FROM runs ORDER BY started_at_utc DESC, created_at_utc DESC LIMIT ?`
	var rows *sql.Rows
	err := s.withRetry("load recent runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LastError returns the most recent failed or errored run, nil when the
// history holds none.
func (s *Store) LastError() (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + selectColumns + ` FROM runs
WHERE status IN ('failed', 'errored')
ORDER BY started_at_utc DESC, created_at_utc DESC LIMIT 1`
	var rows *sql.Rows
	err := s.withRetry("load last error", func() error {
		var qErr error
		rows, qErr = s.db.Query(query)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			run        Run
			statusRaw  string
			startRaw   string
			durationMS int64
		)
		if err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Name,
			&run.Platform,
			&statusRaw,
			&startRaw,
			&durationMS,
			&run.ExitCode,
			&run.Artifact,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		run.Status = core.ParseRunStatus(statusRaw)
		start, err := time.Parse(time.RFC3339Nano, startRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startRaw, err)
		}
		run.StartTime = start.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
