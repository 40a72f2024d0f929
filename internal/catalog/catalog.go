// Package catalog describes the resources a batch can reference and the
// lookup contract the archive builder resolves them through.
package catalog

import (
	"context"
	"strings"
	"sync"

	"poolpack/internal/services"
)

// ErrNotFound is returned when an identifier has no catalog entry.
var ErrNotFound = services.ErrNotFound

// Resource is a catalog entry: display metadata plus a fetchable URL.
type Resource struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	GroupKey string `json:"group_key"`
	URL      string `json:"url"`
}

// Label returns the human-readable name used in progress events.
func (r Resource) Label() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return r.ID
}

// Resolver maps a resource identifier to its catalog entry.
type Resolver interface {
	Resolve(ctx context.Context, id string) (Resource, error)
}

// Memory is an in-process Resolver for tests and for embedders that keep
// their catalog in memory.
type Memory struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewMemory seeds a resolver with resources.
func NewMemory(resources ...Resource) *Memory {
	m := &Memory{resources: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		m.resources[r.ID] = r
	}
	return m
}

// Put adds or replaces a resource.
func (m *Memory) Put(r Resource) {
	m.mu.Lock()
	m.resources[r.ID] = r
	m.mu.Unlock()
}

func (m *Memory) Resolve(_ context.Context, id string) (Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return Resource{}, services.Wrap(ErrNotFound, "catalog", "resolve", "unknown resource "+id, nil)
	}
	return r, nil
}
