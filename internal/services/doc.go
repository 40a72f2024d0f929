// Package services defines shared utilities consumed by the archive builder,
// the artifact registry, and the HTTP API.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, consumer IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into validation, fetch, archive, token, and lookup errors.
//   - HTTPStatus, which turns those markers into response codes for failures
//     that happen before a response stream opens.
//
// Use these helpers when wiring new request paths so error handling and
// observability stay uniform across the service.
package services
