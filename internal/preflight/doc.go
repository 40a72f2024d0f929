// Package preflight provides readiness checks for the filesystem paths and
// backing services poolpack depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check.
//   - The status API and the CLI "poolpack status" command render the
//     results so operators can see why builds might fail.
//
// Each check is gated by its config toggle -- the Redis check only runs when
// the ledger backend is redis.
package preflight
