// Package queue persists export jobs and their progress history in SQLite.
//
// The Store records one row per export job, upserted each time the pipeline
// changes the job's state, and an append-only progress_events table fed by the
// runner's sampled progress updates. It implements pipeline.Recorder.
//
// The database is treated as a job journal rather than a long-term archive.
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema. Jobs left running by a crashed process are marked
// failed by ResetInterrupted on the next start.
package queue
