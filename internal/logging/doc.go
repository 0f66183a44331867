// Package logging builds the slog loggers used across cubemix.
//
// Loggers render either as a compact console line or as JSON. Components tag
// their output with NewComponentLogger; export code adds the job id through
// WithJobID/WithContext so every line of one export can be grepped together.
// Warnings and errors go through WarnWithContext/ErrorWithContext, which
// require an event type and fill in a hint for the reader.
package logging
