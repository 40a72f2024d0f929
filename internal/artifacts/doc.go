// Package artifacts tracks finished archives between the build that produced
// them and the retrieval that streams them back.
//
// The Registry is a mutex-guarded map keyed by locator. It is constructed once
// per process and shared by every request. Removal from the map and deletion
// of the backing file happen inside the same critical section, so a
// concurrent Open either obtains a valid file handle or sees ErrNotFound,
// never a half-deleted artifact. The Reaper drives periodic TTL sweeps.
package artifacts
