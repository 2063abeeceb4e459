package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modelsort/internal/placement"
)

// Run is one recorded organizer invocation.
type Run struct {
	ID             string
	TargetPath     string
	OutputPath     string
	WorkspacePath  string
	State          string
	ErrorMessage   string
	ArchiveCount   int
	PlacementCount int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Finished reports whether the run reached a terminal state.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns the wall-clock time the run took, or zero while running.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// BeginRun records a run that has just started.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (run_id, target_path, output_path, workspace_path, state, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.TargetPath,
		run.OutputPath,
		run.WorkspacePath,
		run.State,
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the terminal state of a run.
func (s *Store) FinishRun(ctx context.Context, id, state, errorMessage string, archiveCount int) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET state = ?, error_message = ?, archive_count = ?, finished_at = ? WHERE run_id = ?`,
		state,
		nullIfBlank(errorMessage),
		archiveCount,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// RecordPlacements stores the placements made by a run in one transaction.
func (s *Store) RecordPlacements(ctx context.Context, id string, placements []placement.Placement) error {
	if len(placements) == 0 {
		return nil
	}
	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO placements (run_id, source_path, category, instance, target_path, action, reason, bytes, loose)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range placements {
			loose := 0
			if p.Loose {
				loose = 1
			}
			if _, err := stmt.ExecContext(ctx, id, p.Source, p.Category, p.Instance, p.Target,
				string(p.Action), nullIfBlank(p.Reason), p.Bytes, loose); err != nil {
				return fmt.Errorf("insert placement %s: %w", p.Source, err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `r.run_id, r.target_path, r.output_path, r.workspace_path, r.state,
    r.error_message, r.archive_count, r.started_at, r.finished_at,
    (SELECT COUNT(1) FROM placements p WHERE p.run_id = r.run_id AND p.action != 'skipped')`

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		errMsg      sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.TargetPath, &run.OutputPath, &run.WorkspacePath, &run.State,
		&errMsg, &run.ArchiveCount, &startedRaw, &finishedRaw, &run.PlacementCount); err != nil {
		return Run{}, err
	}
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run. It returns (nil, nil) when the run is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// Placements returns the placements recorded for a run in insertion order.
func (s *Store) Placements(ctx context.Context, id string) ([]placement.Placement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, category, instance, target_path, action, reason, bytes, loose
         FROM placements WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	var out []placement.Placement
	for rows.Next() {
		var (
			p      placement.Placement
			action string
			reason sql.NullString
			loose  int
		)
		if err := rows.Scan(&p.Source, &p.Category, &p.Instance, &p.Target, &action, &reason, &p.Bytes, &loose); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		p.Action = placement.Action(action)
		p.Reason = reason.String
		p.Loose = loose == 1
		out = append(out, p)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime treats NULL and unparsable values as the zero time.
func parseTime(raw sql.NullString) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw.String)
	if !raw.Valid || err != nil {
		return time.Time{}
	}
	return ts
}

func nullIfBlank(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
