package queue

import (
	"context"
	"fmt"
	"time"

	"cubemix/internal/job"
)

// RecordProgress appends one progress observation and mirrors it onto the
// job row.
func (s *Store) RecordProgress(ctx context.Context, jobID string, p job.Progress) error {
	ctx = ensureContext(ctx)
	recorded := p.UpdatedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	stamp := formatTime(recorded)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO progress_events (job_id, frames_done, total_frames, fraction, timestamp_ms, recorded_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			jobID, p.FramesDone, p.TotalFrames, p.Fraction, p.Timestamp.Milliseconds(), stamp,
		); err != nil {
			return fmt.Errorf("record progress for %s: %w", jobID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE export_jobs SET frames_done = ?, total_frames = ?, progress = ?, updated_at = ? WHERE id = ?`,
			p.FramesDone, p.TotalFrames, p.Fraction, stamp, jobID,
		); err != nil {
			return fmt.Errorf("update job progress for %s: %w", jobID, err)
		}
		return tx.Commit()
	})
}

// ProgressHistory returns recorded observations for jobID, oldest first.
func (s *Store) ProgressHistory(ctx context.Context, jobID string) ([]job.Progress, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT frames_done, total_frames, fraction, timestamp_ms, recorded_at
           FROM progress_events WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("progress history for %s: %w", jobID, err)
	}
	defer rows.Close()

	var history []job.Progress
	for rows.Next() {
		var (
			p           job.Progress
			timestampMS int64
			recordedRaw string
		)
		if err := rows.Scan(&p.FramesDone, &p.TotalFrames, &p.Fraction, &timestampMS, &recordedRaw); err != nil {
			return nil, err
		}
		p.Timestamp = time.Duration(timestampMS) * time.Millisecond
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			p.UpdatedAt = recorded
		}
		history = append(history, p)
	}
	return history, rows.Err()
}
