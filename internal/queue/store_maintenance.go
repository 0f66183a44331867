package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cubemix/internal/job"
)

// DatabaseHealth describes the job journal: whether both tables carry the
// columns the store reads, whether progress events are tied to their jobs,
// and how much history the journal holds.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int

	JobsTable     bool
	ProgressTable bool
	// MissingColumns are qualified as table.column.
	MissingColumns []string
	// ProgressLinked reports that progress_events.job_id references
	// export_jobs(id) and cascades on delete, which ClearFinished relies on.
	ProgressLinked      bool
	ForeignKeysEnforced bool
	OrphanedEvents      int
	IntegrityCheck      bool

	TotalJobs      int
	RunningJobs    int
	ProgressEvents int
	Error          string
}

// Problems lists what is wrong with the journal, or nil when it is usable.
func (h DatabaseHealth) Problems() []string {
	if !h.DatabaseExists {
		return nil
	}
	var problems []string
	if h.Error != "" {
		problems = append(problems, h.Error)
	}
	if !h.DatabaseReadable {
		return append(problems, "database is not readable")
	}
	if !h.JobsTable {
		problems = append(problems, jobsTable+" table is missing")
	}
	if !h.ProgressTable {
		problems = append(problems, progressTable+" table is missing")
	}
	if len(h.MissingColumns) > 0 {
		problems = append(problems, "missing columns "+strings.Join(h.MissingColumns, ", "))
	}
	if h.ProgressTable && !h.ProgressLinked {
		problems = append(problems, "progress events are not linked to export_jobs")
	}
	if !h.ForeignKeysEnforced {
		problems = append(problems, "foreign keys are not enforced")
	}
	if h.OrphanedEvents > 0 {
		problems = append(problems, fmt.Sprintf("%d progress events belong to no job", h.OrphanedEvents))
	}
	if !h.IntegrityCheck {
		problems = append(problems, "integrity check failed")
	}
	return problems
}

// CheckHealth inspects the journal. A journal file that does not exist yet
// is reported with DatabaseExists false and no error.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("job database path is unknown")
	}
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat job database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("job database path %q is a directory", s.path)
	}
	health.DatabaseExists = true
	if s.db == nil {
		return health, errors.New("job database connection unavailable")
	}

	ctx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()
	fail := func(step string, err error) (DatabaseHealth, error) {
		health.Error = err.Error()
		return health, fmt.Errorf("%s: %w", step, err)
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fail("ping job database", err)
	}
	health.DatabaseReadable = true

	if health.SchemaVersion, err = readSchemaVersion(ctx, s.db); err != nil {
		return fail("schema version", err)
	}

	jobCols, err := tableColumns(ctx, s.db, jobsTable)
	if err != nil {
		return fail("inspect jobs", err)
	}
	eventCols, err := tableColumns(ctx, s.db, progressTable)
	if err != nil {
		return fail("inspect progress", err)
	}
	health.JobsTable = len(jobCols) > 0
	health.ProgressTable = len(eventCols) > 0
	health.MissingColumns = append(missingColumns(jobsTable, jobCols, jobColumns),
		missingColumns(progressTable, eventCols, progressColumns)...)
	sort.Strings(health.MissingColumns)

	if health.ProgressLinked, err = s.progressLinked(ctx); err != nil {
		return fail("inspect progress foreign key", err)
	}
	var enforced int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enforced); err != nil {
		return fail("foreign key pragma", err)
	}
	health.ForeignKeysEnforced = enforced == 1

	if health.JobsTable {
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0) FROM export_jobs",
			string(job.StateRunning),
		).Scan(&health.TotalJobs, &health.RunningJobs); err != nil {
			return fail("count jobs", err)
		}
	}
	if health.ProgressTable {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM progress_events").Scan(&health.ProgressEvents); err != nil {
			return fail("count progress events", err)
		}
	}
	if health.JobsTable && health.ProgressTable {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM progress_events p
              LEFT JOIN export_jobs j ON j.id = p.job_id
             WHERE j.id IS NULL`,
		).Scan(&health.OrphanedEvents); err != nil {
			return fail("count orphaned progress", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fail("integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

func (s *Store) progressLinked(ctx context.Context) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT "table", "from", "to", on_delete FROM pragma_foreign_key_list(?)`, progressTable)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	linked := false
	for rows.Next() {
		var table, from, to, onDelete string
		if err := rows.Scan(&table, &from, &to, &onDelete); err != nil {
			return false, err
		}
		if table == jobsTable && from == "job_id" && to == "id" && strings.EqualFold(onDelete, "CASCADE") {
			linked = true
		}
	}
	return linked, rows.Err()
}
