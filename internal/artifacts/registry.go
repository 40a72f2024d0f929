package artifacts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"poolpack/internal/logging"
	"poolpack/internal/services"
)

// ErrNotFound is returned when a locator is unknown or already evicted.
var ErrNotFound = services.ErrArtifactNotFound

// Artifact describes one finished archive on disk.
type Artifact struct {
	Locator   string    `json:"locator"`
	Path      string    `json:"-"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest,omitempty"`
	Entries   int       `json:"entries"`
}

// Age reports how old the artifact is at now.
func (a Artifact) Age(now time.Time) time.Duration {
	return now.Sub(a.CreatedAt)
}

// EvictionObserver is notified once per artifact removed by a sweep.
type EvictionObserver interface {
	ArtifactEvicted(Artifact)
}

// Registry is the process-wide table of live artifacts.
type Registry struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Artifact

	observer EvictionObserver
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for ages and sweeps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.NewComponentLogger(logger, "artifacts")
	}
}

// WithEvictionObserver registers a callback for sweep evictions.
func WithEvictionObserver(observer EvictionObserver) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// NewRegistry constructs a registry rooted at dir whose entries expire after ttl.
func NewRegistry(dir string, ttl time.Duration, opts ...Option) (*Registry, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if ttl <= 0 {
		return nil, errors.New("artifact ttl must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	r := &Registry{
		dir:     dir,
		ttl:     ttl,
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "artifacts"),
		entries: make(map[string]Artifact),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the directory holding artifact files.
func (r *Registry) Dir() string {
	return r.dir
}

// TTL returns the configured artifact lifetime.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Now returns the registry clock reading.
func (r *Registry) Now() time.Time {
	return r.now()
}

// PathFor returns the on-disk path for a locator inside the artifact directory.
func (r *Registry) PathFor(locator string) string {
	return filepath.Join(r.dir, filepath.Base(locator))
}

// Register records a finished artifact and returns its handle. The artifact
// file must already be complete on disk.
func (r *Registry) Register(artifact Artifact) (string, error) {
	if artifact.Locator == "" {
		return "", services.Wrap(services.ErrValidation, "artifacts", "register", "locator is required", nil)
	}
	if artifact.Path == "" {
		artifact.Path = r.PathFor(artifact.Locator)
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[artifact.Locator]; exists {
		return "", services.Wrap(services.ErrValidation, "artifacts", "register", "duplicate locator "+artifact.Locator, nil)
	}
	r.entries[artifact.Locator] = artifact
	return artifact.Locator, nil
}

// Lookup returns the artifact registered under handle.
func (r *Registry) Lookup(handle string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.entries[handle]
	if !ok {
		return Artifact{}, services.Wrap(ErrNotFound, "artifacts", "lookup", handle, nil)
	}
	return artifact, nil
}

// Open looks up handle and opens its file while holding the read lock, so the
// returned handle stays readable even if a sweep evicts the artifact right
// after. The caller must close the file.
func (r *Registry) Open(handle string) (*os.File, Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.entries[handle]
	if !ok {
		return nil, Artifact{}, services.Wrap(ErrNotFound, "artifacts", "open", handle, nil)
	}
	file, err := os.Open(artifact.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Artifact{}, services.Wrap(ErrNotFound, "artifacts", "open", "file missing for "+handle, err)
		}
		return nil, Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	return file, artifact, nil
}

// Remove evicts handle and deletes its file. It reports whether an entry was
// present; removing an unknown handle is a no-op.
func (r *Registry) Remove(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.entries[handle]
	if !ok {
		return false
	}
	r.evictLocked(artifact)
	return true
}

// Sweep evicts every artifact older than the TTL at now and returns the
// evicted entries. Deletion failures are logged and never stop the sweep.
func (r *Registry) Sweep(now time.Time) []Artifact {
	r.mu.Lock()
	var evicted []Artifact
	for _, artifact := range r.entries {
		if artifact.Age(now) <= r.ttl {
			continue
		}
		r.evictLocked(artifact)
		evicted = append(evicted, artifact)
	}
	r.mu.Unlock()

	for _, artifact := range evicted {
		r.logger.Info("artifact evicted",
			logging.String(logging.FieldLocator, artifact.Locator),
			logging.Duration("age", artifact.Age(now)),
			logging.String(logging.FieldEventType, "artifact_evicted"),
		)
		if r.observer != nil {
			r.observer.ArtifactEvicted(artifact)
		}
	}
	return evicted
}

// evictLocked removes the entry and its file. Callers hold r.mu for writing.
func (r *Registry) evictLocked(artifact Artifact) {
	delete(r.entries, artifact.Locator)
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(r.logger, "artifact file delete failed", "artifact_delete_failed",
			logging.String(logging.FieldLocator, artifact.Locator),
			logging.String("path", artifact.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check artifact_dir permissions"),
			logging.String(logging.FieldImpact, "orphaned file stays on disk until the next startup cleanup"),
		)
	}
}

// List returns a snapshot of live artifacts ordered by creation time.
func (r *Registry) List() []Artifact {
	r.mu.RLock()
	out := make([]Artifact, 0, len(r.entries))
	for _, artifact := range r.entries {
		out = append(out, artifact)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Locator < out[j].Locator
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RemoveOrphans deletes archive files in the artifact directory that the
// registry does not know about, such as leftovers from a crash mid-build.
func (r *Registry) RemoveOrphans() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact directory: %w", err)
	}
	r.mu.RLock()
	known := make(map[string]struct{}, len(r.entries))
	for _, artifact := range r.entries {
		known[filepath.Base(artifact.Path)] = struct{}{}
	}
	r.mu.RUnlock()

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ArchiveSuffix) && !strings.HasSuffix(name, PartialSuffix) {
			continue
		}
		if _, ok := known[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("orphan artifact delete failed", logging.String("path", name), logging.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("orphan artifacts removed",
			logging.Int("count", removed),
			logging.String(logging.FieldEventType, "artifact_orphans_removed"),
		)
	}
	return removed, nil
}

const (
	// ArchiveSuffix is the extension of finished artifact files.
	ArchiveSuffix = ".zip"
	// PartialSuffix marks archives that are still being written.
	PartialSuffix = ".zip.part"
)
