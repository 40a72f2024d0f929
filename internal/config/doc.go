// Package config loads, normalizes, and validates poolpack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POOLPACK_SIGNING_SECRET. The Config type centralizes every knob the daemon
// and CLI need so artifact directories, token secrets, and ledger backends are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
