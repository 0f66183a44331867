// Package preflight provides readiness checks for the directories and files
// cubemix depends on.
//
// The CLI "cubemix check" command runs RunAll and prints every result; the
// export command runs CheckOutputParent before creating a job so a doomed
// export fails before any frame is decoded.
package preflight
