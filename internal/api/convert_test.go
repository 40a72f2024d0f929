package api

import (
	"encoding/json"
	"testing"
	"time"

	"poolpack/internal/artifacts"
	"poolpack/internal/preflight"
)

func TestBatchRequestAcceptsNumbersAndStrings(t *testing.T) {
	var req BatchRequest
	body := `{"resourceIds":[1, "2", 12345678901234567890, " x-9 "],"filename":"set"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"1", "2", "12345678901234567890", "x-9"}
	if len(req.ResourceIDs) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), req.ResourceIDs)
	}
	for i := range want {
		if req.ResourceIDs[i] != want[i] {
			t.Fatalf("id %d = %q, want %q", i, req.ResourceIDs[i], want[i])
		}
	}
	if req.Filename != "set" {
		t.Fatalf("unexpected filename %q", req.Filename)
	}
}

func TestBatchRequestRejectsObjects(t *testing.T) {
	var req BatchRequest
	if err := json.Unmarshal([]byte(`{"resourceIds":[{"id":1}]}`), &req); err == nil {
		t.Fatal("expected object element to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"resourceIds":"1,2"}`), &req); err == nil {
		t.Fatal("expected non-array to be rejected")
	}
}

func TestBatchRequestMissingIDs(t *testing.T) {
	var req BatchRequest
	if err := json.Unmarshal([]byte(`{"filename":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := req.ToRequest("c1"); len(got.ResourceIDs) != 0 || got.ConsumerID != "c1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestFromArtifact(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := artifacts.Artifact{Locator: "abc", Filename: "set.zip", Size: 42, Digest: "d1", Entries: 3, CreatedAt: created}

	dto := FromArtifact(a, 30*time.Minute, created.Add(90*time.Second))
	if dto.AgeSeconds != 90 {
		t.Fatalf("expected age 90, got %d", dto.AgeSeconds)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.ExpiresAt != "2026-03-01T12:30:00.000Z" {
		t.Fatalf("unexpected expiresAt %q", dto.ExpiresAt)
	}

	if early := FromArtifact(a, time.Minute, created.Add(-time.Second)); early.AgeSeconds != 0 {
		t.Fatalf("expected clamped age, got %d", early.AgeSeconds)
	}
}

func TestFromChecks(t *testing.T) {
	got := FromChecks([]preflight.Result{{Name: "a", Passed: true}, {Name: "b", Detail: "missing"}})
	if len(got) != 2 || !got[0].Passed || got[1].Passed || got[1].Detail != "missing" {
		t.Fatalf("unexpected checks %+v", got)
	}
}
