package artifacts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"poolpack/internal/logging"
)

// Reaper periodically sweeps a Registry for expired artifacts.
type Reaper struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a reaper that sweeps registry every interval.
func NewReaper(registry *Registry, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		registry: registry,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "artifact-reaper"),
	}
}

// Start launches the sweep loop. Calls made while a loop is running have no
// effect. After Stop the reaper can be started again.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(loopCtx)
	r.logger.Info("artifact reaper started",
		logging.Duration("interval", r.interval),
		logging.Duration("ttl", r.registry.TTL()),
	)
}

// Running reports whether a sweep loop is active.
func (r *Reaper) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop halts the sweep loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep at the registry's current time.
func (r *Reaper) SweepOnce() int {
	evicted := r.registry.Sweep(r.registry.Now())
	if len(evicted) > 0 {
		r.logger.Debug("artifact sweep finished",
			logging.Int("evicted", len(evicted)),
			logging.Int("remaining", r.registry.Len()),
		)
	}
	return len(evicted)
}
