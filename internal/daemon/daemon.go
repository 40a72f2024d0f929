package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"poolpack/internal/archive"
	"poolpack/internal/artifacts"
	"poolpack/internal/catalog"
	"poolpack/internal/config"
	"poolpack/internal/ledger"
	"poolpack/internal/logging"
	"poolpack/internal/metrics"
	"poolpack/internal/preflight"
	"poolpack/internal/tokens"
)

// LockFileName is created inside the artifact directory while a daemon runs.
const LockFileName = "poolpack.lock"

// Deps are the backends chosen by the caller.
type Deps struct {
	Resolver catalog.Resolver
	Ledger   ledger.Sink
	// Fetcher defaults to a URL fetcher built from the fetch config.
	Fetcher archive.Fetcher
}

// Daemon owns the artifact registry, the archive builder and the API server
// and enforces single-instance execution per artifact directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *artifacts.Registry
	reaper   *artifacts.Reaper
	builder  *archive.Builder
	signer   *tokens.Signer
	ledger   *ledger.Async
	metrics  metrics.Recorder
	prom     *metrics.Prom
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Reaping       bool
	PID           int
	StartedAt     time.Time
	ArtifactDir   string
	LockFilePath  string
	Artifacts     int
	TTL           time.Duration
	LedgerBackend string
	Checks        []preflight.Result
}

// New constructs a daemon with initialized dependencies. The registry is
// created here once and shared by the builder, the reaper and retrieval.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || logger == nil || deps.Resolver == nil {
		return nil, errors.New("daemon requires config, logger, and catalog resolver")
	}

	var recorder metrics.Recorder = metrics.Noop{}
	var prom *metrics.Prom
	if cfg.Metrics.Enabled {
		prom = metrics.NewProm(cfg.Metrics.Namespace)
		recorder = prom
	}

	registry, err := artifacts.NewRegistry(cfg.Paths.ArtifactDir, cfg.ArtifactTTL(),
		artifacts.WithLogger(logger),
		artifacts.WithEvictionObserver(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("artifact registry: %w", err)
	}
	signer, err := tokens.NewSigner(cfg.Signing.Secret)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = archive.NewURLFetcher(archive.FetchOptions{
			Timeout:      cfg.FetchTimeout(),
			UserAgent:    cfg.Fetch.UserAgent,
			MaxIdleConns: cfg.Fetch.MaxIdleConns,
			AllowFiles:   cfg.Fetch.AllowFiles,
		})
	}
	usage := ledger.NewAsync(deps.Ledger, 0, logger)

	builder, err := archive.New(archive.Deps{
		Registry: registry,
		Signer:   signer,
		Resolver: deps.Resolver,
		Fetcher:  fetcher,
		Ledger:   usage,
		Metrics:  recorder,
		Logger:   logger,
	}, archive.Options{
		DefaultFilename:  cfg.Archive.DefaultFilename,
		DefaultExtension: cfg.Archive.DefaultExtension,
		Compression:      cfg.Archive.Compression,
		Level:            cfg.Archive.Level,
		MinFreeBytes:     uint64(cfg.Archive.MinFreeMB) << 20,
		MaxItems:         cfg.Archive.MaxItems,
		RetrievePath:     archive.DefaultRetrievePath,
	})
	if err != nil {
		return nil, fmt.Errorf("archive builder: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.ArtifactDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		reaper:   artifacts.NewReaper(registry, cfg.SweepInterval(), logger),
		builder:  builder,
		signer:   signer,
		ledger:   usage,
		metrics:  recorder,
		prom:     prom,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, clears crash leftovers, and launches the
// reaper and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another poolpack daemon is already using this artifact directory")
	}

	if d.cfg.Artifacts.OrphanSweep {
		removed, err := d.registry.RemoveOrphans()
		if err != nil {
			logging.WarnWithContext(d.logger, "orphan sweep incomplete", "orphan_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale archives may occupy disk until removed manually"),
			)
		}
		if removed > 0 {
			d.logger.Info("removed orphaned archives",
				logging.Int("count", removed),
				logging.String(logging.FieldEventType, "orphan_sweep"),
			)
		}
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.reaper.Start(d.ctx)
	if err := d.api.start(d.ctx); err != nil {
		d.reaper.Stop()
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("poolpack daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("artifact_ttl", d.registry.TTL()),
	)
	return nil
}

// Stop stops background work, drains pending ledger writes, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.reaper.Stop()
	d.ledger.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("poolpack daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Handler returns the daemon's HTTP routes.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler()
}

// Addr returns the bound API address, or "" when the server is not listening.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Registry exposes the shared artifact registry.
func (d *Daemon) Registry() *artifacts.Registry {
	return d.registry
}

// Status returns the current daemon status including preflight checks.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		Reaping:       d.reaper.Running(),
		PID:           os.Getpid(),
		ArtifactDir:   d.registry.Dir(),
		LockFilePath:  d.lockPath,
		Artifacts:     d.registry.Len(),
		TTL:           d.registry.TTL(),
		LedgerBackend: d.cfg.Ledger.Backend,
		Checks:        preflight.RunAll(ctx, d.cfg),
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = *started
	}
	return status
}
