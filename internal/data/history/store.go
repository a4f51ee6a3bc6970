package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store persists runs in a single sqlite file.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

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

	// busy_timeout + WAL reduce lock conflicts when watch mode records runs.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
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

// SaveRun writes run and its spec totals in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, schema_version, started_at_utc, duration_ms) VALUES (?, ?, ?, ?)`,
			run.ID, SchemaVersion, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, spec := range run.Specs {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO spec_totals (run_id, position, spec_name, file_count, node_count, source_lines, error_count)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID, i, spec.Name, spec.Files, spec.Nodes, spec.SourceLines, spec.Errors,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// RecentRuns returns up to limit runs, newest first, with their totals.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, started_at_utc, duration_ms
FROM runs
ORDER BY started_at_utc DESC, id ASC
LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
			ms    int64
		)
		if err := rows.Scan(&run.ID, &tsRaw, &ms); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.StartedAt = ts.UTC()
		run.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		specs, err := s.specTotals(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Specs = specs
	}
	return runs, nil
}

// LatestTotals returns the totals of the most recent run other than
// excludeRunID, keyed by spec name. It is empty when there is no such run.
func (s *Store) LatestTotals(ctx context.Context, excludeRunID string) (map[string]SpecTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.withRetry("load latest run", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT id FROM runs
WHERE id <> ?
ORDER BY started_at_utc DESC, id ASC
LIMIT 1`, excludeRunID).Scan(&id)
	})
	if err != nil {
		if isNoRows(err) {
			return map[string]SpecTotal{}, nil
		}
		return nil, err
	}

	specs, err := s.specTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]SpecTotal, len(specs))
	for _, spec := range specs {
		out[spec.Name] = spec
	}
	return out, nil
}

func (s *Store) specTotals(ctx context.Context, runID string) ([]SpecTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT spec_name, file_count, node_count, source_lines, error_count
FROM spec_totals
WHERE run_id = ?
ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("load spec totals: %w", err)
	}
	defer rows.Close()

	specs := make([]SpecTotal, 0)
	for rows.Next() {
		var spec SpecTotal
		if err := rows.Scan(&spec.Name, &spec.Files, &spec.Nodes, &spec.SourceLines, &spec.Errors); err != nil {
			return nil, fmt.Errorf("scan spec total row: %w", err)
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spec total rows: %w", err)
	}
	return specs, nil
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

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
