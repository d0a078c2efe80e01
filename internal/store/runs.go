package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunKind distinguishes exports from imports.
type RunKind string

const (
	KindExport RunKind = "export"
	KindImport RunKind = "import"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Run is one recorded export or import.
type Run struct {
	ID            string    `json:"id"`
	Kind          RunKind   `json:"kind"`
	Status        RunStatus `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"` // zero while running
	Slots         int       `json:"slots"`
	Files         int       `json:"files"`
	Warnings      int       `json:"warnings"`
	ArchiveDigest string    `json:"archive_digest,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// Outcome is what FinishRun records.
type Outcome struct {
	Status        RunStatus
	FinishedAt    time.Time
	Slots         int
	Files         int
	Warnings      int
	ArchiveDigest string
	Message       string
}

// ErrRunNotFound is returned when finishing an unknown or already finished run.
var ErrRunNotFound = errors.New("run not found")

// BeginRun records a run in the running state and returns its id.
func (s *Store) BeginRun(ctx context.Context, kind RunKind, startedAt time.Time) (string, error) {
	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, status, started_at)
		VALUES (?, ?, ?, ?)
	`, id, string(kind), string(StatusRunning), startedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a running run.
func (s *Store) FinishRun(ctx context.Context, id string, out Outcome) error {
	if out.Status == StatusRunning {
		return fmt.Errorf("finish run %s: status must be terminal", id)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, slots = ?, files = ?, warnings = ?, archive_digest = ?, message = ?
		WHERE id = ? AND status = ?
	`,
		string(out.Status),
		out.FinishedAt.UnixNano(),
		out.Slots,
		out.Files,
		out.Warnings,
		out.ArchiveDigest,
		out.Message,
		id,
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// LastSuccess returns the most recently started successful run of kind.
// The boolean is false when no such run exists.
func (s *Store) LastSuccess(ctx context.Context, kind RunKind) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+`
		WHERE kind = ? AND status = ?
		ORDER BY seq DESC
		LIMIT 1
	`, string(kind), string(StatusSucceeded))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("last %s: %w", kind, err)
	}
	return run, true, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+`
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("recent runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `
	SELECT id, kind, status, started_at, finished_at, slots, files, warnings, archive_digest, message
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		kind       string
		status     string
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := row.Scan(&run.ID, &kind, &status, &startedAt, &finishedAt,
		&run.Slots, &run.Files, &run.Warnings, &run.ArchiveDigest, &run.Message)
	if err != nil {
		return Run{}, err
	}

	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		run.FinishedAt = time.Unix(0, finishedAt.Int64)
	}
	return run, nil
}
