package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cubemix/internal/job"
)

// SaveJob inserts or updates the row for status.ID. created_at is kept from
// the first save.
func (s *Store) SaveJob(ctx context.Context, status job.Status) error {
	if strings.TrimSpace(status.ID) == "" {
		return errors.New("save job: empty id")
	}
	created := status.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := status.Progress.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO export_jobs (
            id, source_path, destination, state, tier, container,
            frame_count, frames_done, total_frames, progress,
            output_path, error_message, created_at, started_at, finished_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state,
            tier = excluded.tier,
            container = excluded.container,
            frame_count = excluded.frame_count,
            frames_done = excluded.frames_done,
            total_frames = excluded.total_frames,
            progress = excluded.progress,
            output_path = excluded.output_path,
            error_message = excluded.error_message,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at,
            updated_at = excluded.updated_at`,
		status.ID,
		status.Source,
		status.Destination,
		string(status.State),
		string(status.Tier),
		nullableString(status.Container),
		status.FrameCount,
		status.Progress.FramesDone,
		status.Progress.TotalFrames,
		status.Progress.Fraction,
		nullableString(status.Output),
		nullableString(status.Error),
		formatTime(created),
		nullableTime(status.StartedAt),
		nullableTime(status.FinishedAt),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", status.ID, err)
	}
	return nil
}

// GetJob fetches a job by id. A missing id returns ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (job.Status, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+jobColumns+" FROM export_jobs WHERE id = ?", id)
	status, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return job.Status{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return status, nil
}

// FindJob resolves a full id or a unique prefix of at least four characters,
// which is what the CLI prints.
func (s *Store) FindJob(ctx context.Context, idOrPrefix string) (job.Status, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if len(idOrPrefix) < 4 {
		return job.Status{}, fmt.Errorf("job id %q is too short", idOrPrefix)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM export_jobs WHERE id LIKE ? ESCAPE '\\' LIMIT 2",
		escapeLike(idOrPrefix)+"%")
	if err != nil {
		return job.Status{}, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()

	var matches []job.Status
	for rows.Next() {
		status, err := scanJob(rows)
		if err != nil {
			return job.Status{}, err
		}
		matches = append(matches, status)
	}
	if err := rows.Err(); err != nil {
		return job.Status{}, err
	}
	switch len(matches) {
	case 0:
		return job.Status{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return job.Status{}, fmt.Errorf("job id prefix %q is ambiguous", idOrPrefix)
	}
}

// ListJobs returns jobs newest first, optionally filtered by state.
func (s *Store) ListJobs(ctx context.Context, states ...job.State) ([]job.Status, error) {
	query := "SELECT " + jobColumns + " FROM export_jobs"
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += " WHERE state IN (" + makePlaceholders(len(states)) + ")"
		for _, state := range states {
			args = append(args, string(state))
		}
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Status
	for rows.Next() {
		status, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, status)
	}
	return jobs, rows.Err()
}

// ResetInterrupted marks pending and running jobs failed. Call it once at
// startup, before any export begins, so jobs orphaned by a crash do not show
// as active forever.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE export_jobs
            SET state = ?, error_message = ?, finished_at = ?, updated_at = ?
          WHERE state IN (?, ?)`,
		string(job.StateFailed), interruptedReason, now, now,
		string(job.StatePending), string(job.StateRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFinished deletes terminal jobs and their progress history. When
// olderThan is positive only jobs finished before now-olderThan are removed.
func (s *Store) ClearFinished(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM export_jobs WHERE state IN (?, ?, ?)`
	args := []any{string(job.StateCompleted), string(job.StateFailed), string(job.StateCancelled)}
	if olderThan > 0 {
		query += " AND finished_at < ?"
		args = append(args, formatTime(time.Now().Add(-olderThan)))
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by state.
func (s *Store) Stats(ctx context.Context) (map[job.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM export_jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[job.State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[job.State(state)] = count
	}
	return stats, rows.Err()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
