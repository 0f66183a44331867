package queue

import (
	"database/sql"
	"errors"
	"time"

	"cubemix/internal/job"
)

const jobColumns = "id, source_path, destination, state, tier, container, frame_count, frames_done, total_frames, progress, output_path, error_message, created_at, started_at, finished_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (job.Status, error) {
	var (
		status       job.Status
		stateRaw     string
		tierRaw      string
		container    sql.NullString
		outputPath   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		updatedRaw   string
	)

	if err := scanner.Scan(
		&status.ID,
		&status.Source,
		&status.Destination,
		&stateRaw,
		&tierRaw,
		&container,
		&status.FrameCount,
		&status.Progress.FramesDone,
		&status.Progress.TotalFrames,
		&status.Progress.Fraction,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&updatedRaw,
	); err != nil {
		return job.Status{}, err
	}

	state, err := job.ParseState(stateRaw)
	if err != nil {
		return job.Status{}, err
	}
	status.State = state
	status.Tier = job.Tier(tierRaw)
	status.Container = container.String
	status.Output = outputPath.String
	status.Error = errorMessage.String

	if created, err := parseTimeString(createdRaw); err == nil {
		status.CreatedAt = created
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		status.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		status.FinishedAt = finished
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		status.Progress.UpdatedAt = updated
	}
	return status, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
