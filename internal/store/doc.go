// Package store persists the resource catalog and the usage ledger in a
// local SQLite database.
//
// The Store satisfies catalog.Resolver for the archive builder and
// ledger.Sink for delivery bookkeeping. Schema changes ship as embedded
// migrations applied in filename order on Open.
package store
