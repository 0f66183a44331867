// Package logs reads back the cubemix log file for `cubemix logs`.
//
// Last returns the final lines of the file with bounded memory; Follow polls
// for appended lines and copes with the file being truncated or recreated.
// Both can keep only lines that mention a job ID, which is how a single
// export's history is pulled out of the shared log.
package logs
