// Package archive builds batch archives by streaming catalog resources into
// a zip file on disk while reporting progress.
//
// A build resolves each requested id through a catalog.Resolver, fetches the
// bytes with a Fetcher and copies them straight into the zip entry, so no
// archive is ever held in memory. A resource that cannot be resolved or
// fetched is replaced by a small text placeholder and the build carries on;
// only failures writing the archive itself abort the job. Finished archives
// are committed into the artifacts.Registry and handed back as a signed
// retrieval token.
package archive
