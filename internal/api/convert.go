package api

import (
	"time"

	"poolpack/internal/archive"
	"poolpack/internal/artifacts"
	"poolpack/internal/preflight"
)

// FromArtifact converts a registry entry to its API representation.
func FromArtifact(a artifacts.Artifact, ttl time.Duration, now time.Time) ArtifactSummary {
	age := a.Age(now)
	if age < 0 {
		age = 0
	}
	return ArtifactSummary{
		Locator:    a.Locator,
		Filename:   a.Filename,
		Size:       a.Size,
		Digest:     a.Digest,
		Entries:    a.Entries,
		CreatedAt:  a.CreatedAt.UTC().Format(dateTimeFormat),
		ExpiresAt:  a.CreatedAt.Add(ttl).UTC().Format(dateTimeFormat),
		AgeSeconds: int64(age / time.Second),
	}
}

// FromArtifacts converts a registry listing, preserving order.
func FromArtifacts(list []artifacts.Artifact, ttl time.Duration, now time.Time) []ArtifactSummary {
	out := make([]ArtifactSummary, 0, len(list))
	for _, a := range list {
		out = append(out, FromArtifact(a, ttl, now))
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckStatus {
	out := make([]CheckStatus, 0, len(results))
	for _, r := range results {
		out = append(out, CheckStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// ToRequest converts a decoded body into a builder request.
func (r BatchRequest) ToRequest(consumerID string) archive.Request {
	return archive.Request{
		ResourceIDs: []string(r.ResourceIDs),
		Filename:    r.Filename,
		ConsumerID:  consumerID,
	}
}

// FormatTime renders t in the API timestamp format.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
