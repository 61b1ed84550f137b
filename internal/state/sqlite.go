package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sceneforge/pkg/core"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// SQLiteStore persists editor history in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database, creating its directory.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", "path", path)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// RecordCheck stores a check run and its diagnostics. ID is assigned when empty.
func (s *SQLiteStore) RecordCheck(ctx context.Context, run *CheckRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = generateID()
	}
	run.DiagnosticCount = len(run.Diagnostics)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO check_runs (id, project_root, epoch, started_at, duration_ms, status, diagnostic_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectRoot, int64(run.Epoch), run.StartedAt.UnixMilli(),
		run.Duration.Milliseconds(), string(run.Status), run.DiagnosticCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert check run: %w", err)
	}

	for i, d := range run.Diagnostics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO diagnostics (run_id, position, file, line, col, message) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, d.File, d.Line, d.Col, d.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check run: %w", err)
	}

	s.logger.Debug("check recorded", slog.String("id", run.ID), slog.String("status", string(run.Status)))
	return nil
}

// ListCheckRuns returns the most recent runs for a project, newest first.
// Diagnostics are not loaded.
func (s *SQLiteStore) ListCheckRuns(ctx context.Context, root string, limit int) ([]*CheckRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_root, epoch, started_at, duration_ms, status, diagnostic_count
		 FROM check_runs WHERE project_root = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		root, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list check runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*CheckRun
	for rows.Next() {
		run, err := scanCheckRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetCheckRun retrieves a run and its diagnostics by ID.
func (s *SQLiteStore) GetCheckRun(ctx context.Context, id string) (*CheckRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_root, epoch, started_at, duration_ms, status, diagnostic_count
		 FROM check_runs WHERE id = ?`, id)
	run, err := scanCheckRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file, line, col, message FROM diagnostics WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d core.Diagnostic
		if err := rows.Scan(&d.File, &d.Line, &d.Col, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		run.Diagnostics = append(run.Diagnostics, d)
	}
	return run, rows.Err()
}

// TouchRecentProject records that a project was opened now.
func (s *SQLiteStore) TouchRecentProject(ctx context.Context, root, name string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_projects (root, name, opened_at) VALUES (?, ?, ?)
		 ON CONFLICT (root) DO UPDATE SET name = excluded.name, opened_at = excluded.opened_at`,
		root, name, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record recent project: %w", err)
	}
	return nil
}

// RecentProjects returns recently opened projects, most recent first.
func (s *SQLiteStore) RecentProjects(ctx context.Context, limit int) ([]RecentProject, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT root, name, opened_at FROM recent_projects ORDER BY opened_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RecentProject
	for rows.Next() {
		var p RecentProject
		var openedAt int64
		if err := rows.Scan(&p.Root, &p.Name, &openedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent project: %w", err)
		}
		p.OpenedAt = time.UnixMilli(openedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckRun(sc scanner) (*CheckRun, error) {
	run := &CheckRun{}
	var epoch, startedAt, durationMS int64
	var status string
	if err := sc.Scan(&run.ID, &run.ProjectRoot, &epoch, &startedAt, &durationMS, &status, &run.DiagnosticCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan check run: %w", err)
	}
	run.Epoch = uint64(epoch)
	run.StartedAt = time.UnixMilli(startedAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.Status = CheckStatus(status)
	return run, nil
}
