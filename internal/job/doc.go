// Package job models a single export run: its lifecycle, the quality tier it
// encodes at, and the deterministic name of its output.
//
// A job moves pending -> running -> completed, failed or cancelled. Terminal
// states are final; a retry is a new job.
package job
