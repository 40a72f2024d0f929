package preflight

import (
	"context"
	"strings"

	"poolpack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Artifact directory (always checked)
	results = append(results, CheckDirectoryAccess("Artifact directory", cfg.Paths.ArtifactDir))
	results = append(results, CheckFreeSpace("Artifact free space", cfg.Paths.ArtifactDir, uint64(cfg.Archive.MinFreeMB)*1024*1024))

	// Data directory only matters for the sqlite store
	if strings.EqualFold(cfg.Ledger.Backend, "sqlite") {
		results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	}

	results = append(results, CheckSigningSecret(cfg.Signing.Secret))

	if strings.EqualFold(cfg.Ledger.Backend, "redis") {
		results = append(results, CheckRedis(ctx, cfg.Ledger.RedisURL))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
