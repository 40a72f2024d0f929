// Package logs reads the daemon's log files for the CLI.
//
// Tail returns the last lines of a file (negative offset) or everything past
// a byte offset, optionally waiting for new output. Follow builds a polling
// loop on top of Tail for `poolpack logs --follow`.
package logs
