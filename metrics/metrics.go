// Package metrics exposes Prometheus instruments for the cache, the provider
// chain and the orchestrator. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricsNamespace           = "agentcache"
	MetricsSubsystemCache      = "cache"
	MetricsSubsystemGeneration = "generation"
	MetricsSubsystemFallback   = "fallback"
	MetricsSubsystemAnswer     = "answer"
)

// Lookup results.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Answer sources.
const (
	SourceCache    = "cache"
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

type Metrics struct {
	registry *prometheus.Registry

	cacheLookups       *prometheus.CounterVec
	cacheEntries       prometheus.Gauge
	generationAttempts *prometheus.CounterVec
	fallbackResponses  *prometheus.CounterVec
	answerDuration     *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg. A nil reg gets a
// fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	if reg == nil {
		m.registry = prometheus.NewRegistry()
		reg = m.registry
	} else if r, ok := reg.(*prometheus.Registry); ok {
		m.registry = r
	}

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "lookups_total",
		Help:      "The total number of semantic cache lookups by result.",
	}, []string{"result"})

	m.cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "entries",
		Help:      "The number of entries in the semantic cache.",
	})

	m.generationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemGeneration,
		Name:      "attempts_total",
		Help:      "The total number of generation attempts by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	m.fallbackResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemFallback,
		Name:      "responses_total",
		Help:      "The total number of synthesized fallback responses by topic.",
	}, []string{"topic"})

	m.answerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemAnswer,
		Name:      "duration_seconds",
		Help:      "Time to answer a query by source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	reg.MustRegister(
		m.cacheLookups,
		m.cacheEntries,
		m.generationAttempts,
		m.fallbackResponses,
		m.answerDuration,
	)
	return m
}

// GetRegistry returns the registry the instruments were registered with, or
// nil when a non-Registry Registerer was supplied.
func (m *Metrics) GetRegistry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) ObserveGenerationAttempt(provider, model, outcome string) {
	if m == nil {
		return
	}
	m.generationAttempts.WithLabelValues(provider, model, outcome).Inc()
}

func (m *Metrics) ObserveFallback(topic string) {
	if m == nil {
		return
	}
	m.fallbackResponses.WithLabelValues(topic).Inc()
}

func (m *Metrics) ObserveAnswerDuration(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.answerDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}
