// Package main hosts the cubemix CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls on the
// internal packages: exports and previews run the grading pipeline over
// image sequences, the lut and catalog commands inspect .cube files, and the
// jobs commands read the SQLite job journal. Configuration resolution and
// logger construction live in commandContext so subcommands only deal with
// their own flags and output.
//
// Keep this package thin. New behaviour belongs in internal/ first and is
// surfaced here through a command or flag.
package main
