package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ConsumerHeader carries the consumer identity established by the gateway.
const ConsumerHeader = "X-Consumer-ID"

// BatchRequest asks the daemon to package resources into one archive.
type BatchRequest struct {
	ResourceIDs ResourceIDs `json:"resourceIds"`
	Filename    string      `json:"filename,omitempty"`
}

// ResourceIDs decodes a JSON array whose elements are numbers or strings.
// Numbers keep their literal text so large ids survive unchanged.
type ResourceIDs []string

// UnmarshalJSON implements json.Unmarshaler.
func (ids *ResourceIDs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ids = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("resourceIds must be an array: %w", err)
	}
	out := make(ResourceIDs, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return fmt.Errorf("resourceIds[%d]: %w", i, err)
			}
			out = append(out, strings.TrimSpace(s))
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil || n == "" {
			return fmt.Errorf("resourceIds[%d] must be a number or string", i)
		}
		out = append(out, n.String())
	}
	*ids = out
	return nil
}

// ArtifactSummary describes a live artifact.
type ArtifactSummary struct {
	Locator    string `json:"locator"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest,omitempty"`
	Entries    int    `json:"entries"`
	CreatedAt  string `json:"createdAt"`
	ExpiresAt  string `json:"expiresAt"`
	AgeSeconds int64  `json:"ageSeconds"`
}

// ArtifactListResponse wraps the live artifact collection.
type ArtifactListResponse struct {
	Artifacts []ArtifactSummary `json:"artifacts"`
}

// CheckStatus mirrors a preflight result.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse aggregates daemon runtime information for API consumers.
type StatusResponse struct {
	Running       bool          `json:"running"`
	PID           int           `json:"pid"`
	StartedAt     string        `json:"startedAt,omitempty"`
	ArtifactDir   string        `json:"artifactDir"`
	LockFilePath  string        `json:"lockFilePath"`
	Artifacts     int           `json:"artifacts"`
	TTLSeconds    int64         `json:"ttlSeconds"`
	LedgerBackend string        `json:"ledgerBackend"`
	Checks        []CheckStatus `json:"checks"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
