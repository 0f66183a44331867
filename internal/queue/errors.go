package queue

import "errors"

// ErrNotFound is returned when a job id has no row.
var ErrNotFound = errors.New("job not found")

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// interruptedReason is stored on jobs found running at startup.
const interruptedReason = "interrupted: process exited while the export was running"
