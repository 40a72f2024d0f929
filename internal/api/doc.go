// Package api defines wire-format types and converters for the HTTP API
// layer. The daemon renders responses with these types and the CLI decodes
// them, so neither side couples to internal registry or preflight models.
//
// # Key Types
//
// BatchRequest: body of POST /batch and first frame of /batch/ws. Resource
// ids may be JSON numbers or strings.
//
// ArtifactSummary/ArtifactListResponse: live artifacts with age and expiry.
//
// StatusResponse: daemon state, artifact count and preflight checks.
//
// # Design Notes
//
// DTOs use camelCase JSON tags to match the progress event stream.
// Timestamps use RFC3339 with milliseconds.
package api
