package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"poolpack/internal/catalog"
	"poolpack/internal/config"
	"poolpack/internal/ledger"
	"poolpack/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "poolpack.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	s, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.Path() != filepath.Join(cfg.Paths.DataDir, "poolpack.db") {
		t.Fatalf("path = %q", s.Path())
	}
	version, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if version != "0001_init" {
		t.Fatalf("schema version = %q", version)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poolpack.db")
	for i := 0; i < 2; i++ {
		s, err := OpenPath(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResourceCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	r := catalog.Resource{ID: "1", Title: "Intro", Artist: "DJ A", GroupKey: "house", URL: "https://example.com/1.mp3"}
	if err := s.UpsertResource(ctx, r); err != nil {
		t.Fatalf("UpsertResource: %v", err)
	}
	got, err := s.Resolve(ctx, "1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != r {
		t.Fatalf("got %+v, want %+v", got, r)
	}

	r.Title = "Intro (Edit)"
	if err := s.UpsertResource(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Resolve(ctx, "1")
	if got.Title != "Intro (Edit)" {
		t.Fatalf("title after update = %q", got.Title)
	}

	if err := s.UpsertResource(ctx, catalog.Resource{ID: "2", GroupKey: "ambient", Title: "Drift", URL: "file:///x"}); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListResources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "2" {
		t.Fatalf("list = %+v", list)
	}

	deleted, err := s.DeleteResource(ctx, "1")
	if err != nil || !deleted {
		t.Fatalf("DeleteResource = %v, %v", deleted, err)
	}
	if _, err := s.Resolve(ctx, "1"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Resolve after delete err = %v", err)
	}
}

func TestUpsertResourceValidation(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertResource(context.Background(), catalog.Resource{URL: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing id err = %v", err)
	}
	if err := s.UpsertResource(context.Background(), catalog.Resource{ID: "1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing url err = %v", err)
	}
}

func TestRecordAndListUsage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	if err := s.Record(ctx, ledger.FromResourceIDs([]string{"1", "2"}, "alice", "b1", at)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, ledger.FromResourceIDs([]string{"3"}, "bob", "b2", at.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListUsage(ctx, UsageFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ResourceID != "3" {
		t.Fatalf("all = %+v", all)
	}
	if !all[2].DeliveredAt.Equal(at) {
		t.Fatalf("delivered_at = %v", all[2].DeliveredAt)
	}

	alice, err := s.ListUsage(ctx, UsageFilter{ConsumerID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alice) != 2 {
		t.Fatalf("alice = %+v", alice)
	}
	batch, err := s.ListUsage(ctx, UsageFilter{BatchID: "b2", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].ConsumerID != "bob" {
		t.Fatalf("batch = %+v", batch)
	}
}

func TestStoreSatisfiesInterfaces(t *testing.T) {
	var _ catalog.Resolver = (*Store)(nil)
	var _ ledger.Sink = (*Store)(nil)
}
