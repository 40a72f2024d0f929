// Package daemon coordinates the long-running poolpack process.
//
// It wires configuration, the artifact registry and reaper, the archive
// builder and the usage ledger into a single lifecycle with flock-based
// locking to prevent two instances from sharing one artifact directory. The
// HTTP surface (batch streams, retrieval, status, metrics) lives in
// api_server.go and is served by the daemon while it runs.
//
// Keep orchestration logic here: archive construction belongs to the archive
// package and retention to artifacts. The daemon focuses on startup, shutdown
// and request plumbing.
package daemon
