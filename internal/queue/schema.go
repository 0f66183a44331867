package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older journals are
// not migrated; the user is told to start a fresh one.
const schemaVersion = 1

const progressColumns = "id, job_id, frames_done, total_frames, fraction, timestamp_ms, recorded_at"

const (
	jobsTable     = "export_jobs"
	progressTable = "progress_events"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) initSchema(ctx context.Context) error {
	exists, err := tableExists(ctx, s.db, "schema_version")
	if err != nil {
		return err
	}
	if !exists {
		return retryOnBusy(ctx, func() error { return s.createSchema(ctx) })
	}

	version, err := readSchemaVersion(ctx, s.db)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal %s is version %d, this build expects %d (remove it to start over)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

// createSchema creates every table and records the version in one
// transaction so a half-initialized journal is never left behind.
func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []struct {
		query string
		args  []any
	}{
		{query: schemaSQL},
		{query: "INSERT INTO schema_version (version) VALUES (?)", args: []any{schemaVersion}},
	} {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("create job journal schema: %w", err)
		}
	}
	return tx.Commit()
}

func readSchemaVersion(ctx context.Context, q querier) (int, error) {
	var version int
	err := q.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: schema_version is empty", ErrSchemaMismatch)
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// tableColumns returns the column names of table; a missing table yields an
// empty set. table must be one of the package's own table names.
func tableColumns(ctx context.Context, q querier, table string) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

// missingColumns lists the entries of want (a comma-separated column list)
// absent from have, qualified as table.column.
func missingColumns(table string, have map[string]struct{}, want string) []string {
	var missing []string
	for _, col := range strings.Split(want, ",") {
		col = strings.TrimSpace(col)
		if _, ok := have[col]; !ok {
			missing = append(missing, table+"."+col)
		}
	}
	return missing
}
