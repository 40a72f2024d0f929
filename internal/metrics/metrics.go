// Package metrics exposes service counters in Prometheus format.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poolpack/internal/artifacts"
)

// Recorder captures build and retrieval activity.
type Recorder interface {
	BuildStarted()
	BuildFinished(outcome string, durationSeconds float64)
	ItemArchived(result string, bytes int64)
	Retrieval(status int)
	ArtifactEvicted(artifacts.Artifact)
}

// Build outcomes.
const (
	OutcomeComplete  = "complete"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Item results.
const (
	ItemArchived    = "archived"
	ItemPlaceholder = "placeholder"
	ItemTruncated   = "truncated"
)

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) BuildStarted()                      {}
func (Noop) BuildFinished(string, float64)      {}
func (Noop) ItemArchived(string, int64)         {}
func (Noop) Retrieval(int)                      {}
func (Noop) ArtifactEvicted(artifacts.Artifact) {}

// Prom implements Recorder backed by its own Prometheus registry.
type Prom struct {
	registry      *prometheus.Registry
	buildsActive  prometheus.Gauge
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	items         *prometheus.CounterVec
	bytes         prometheus.Counter
	retrievals    *prometheus.CounterVec
	evictions     prometheus.Counter
}

// NewProm constructs and registers all collectors under namespace.
func NewProm(namespace string) *Prom {
	namespace = strings.TrimSpace(namespace)
	p := &Prom{
		registry: prometheus.NewRegistry(),
		buildsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "builds_active",
			Help:      "Archive builds currently in progress",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Archive builds by outcome",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Archive build latency by outcome",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Archive entries written by result",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_bytes_total",
			Help:      "Uncompressed bytes copied into archives",
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Artifact retrieval requests by HTTP status",
		}, []string{"status"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_evicted_total",
			Help:      "Artifacts removed after their TTL elapsed",
		}),
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.buildsActive, p.builds, p.buildDuration, p.items, p.bytes, p.retrievals, p.evictions,
	)
	return p
}

func (p *Prom) BuildStarted() {
	p.buildsActive.Inc()
}

func (p *Prom) BuildFinished(outcome string, durationSeconds float64) {
	p.buildsActive.Dec()
	p.builds.WithLabelValues(outcome).Inc()
	p.buildDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (p *Prom) ItemArchived(result string, bytes int64) {
	p.items.WithLabelValues(result).Inc()
	if bytes > 0 {
		p.bytes.Add(float64(bytes))
	}
}

func (p *Prom) Retrieval(status int) {
	p.retrievals.WithLabelValues(http.StatusText(status)).Inc()
}

func (p *Prom) ArtifactEvicted(artifacts.Artifact) {
	p.evictions.Inc()
}

// Handler returns an HTTP handler for /metrics.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
