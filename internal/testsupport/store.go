package testsupport

import (
	"context"
	"testing"

	"poolpack/internal/catalog"
	"poolpack/internal/config"
	"poolpack/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedCatalog upserts resources into the store.
func SeedCatalog(t testing.TB, st *store.Store, resources ...catalog.Resource) {
	t.Helper()

	for _, r := range resources {
		if err := st.UpsertResource(context.Background(), r); err != nil {
			t.Fatalf("store.UpsertResource(%s): %v", r.ID, err)
		}
	}
}

// SampleResources returns two inline resources that need no network.
func SampleResources() []catalog.Resource {
	return []catalog.Resource{
		{ID: "1", Title: "Intro", Artist: "DJ A", GroupKey: "house", URL: "data:audio/mpeg;base64,aW50cm8="},
		{ID: "2", Title: "Groove", Artist: "DJ B", GroupKey: "house", URL: "data:audio/mpeg;base64,Z3Jvb3Zl"},
	}
}
