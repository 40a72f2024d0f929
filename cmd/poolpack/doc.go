// Command poolpack runs the batch archive daemon and offers operator tooling
// around it.
//
// `poolpack serve` starts the daemon in the foreground. The remaining
// commands either talk to a running daemon over its HTTP API (status,
// artifacts, batch) or work directly on local state (config, token, catalog,
// ledger, logs).
package main
