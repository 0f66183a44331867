// Package pipeline applies a grading transform to frame streams.
//
// Runner drives a full export: one reader goroutine pulls frames in order, a
// bounded pool grades them, and the writer puts them back into presentation
// order before handing them to the sink. Any failure or cancellation aborts
// the sink and leaves the job failed or cancelled.
//
// Preview grades a single frame with the same code path, retrying nearby
// timestamps when decoding fails. Previewer layers last-request-wins on top
// for interactive use. Registry rejects a second export to a destination that
// is already being written.
package pipeline
