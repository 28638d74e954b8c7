package observability

import (
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Categorization sources, used as metric labels.
const (
	SourceCache     = "cache"
	SourceMemory    = "memory"
	SourceAI        = "ai"
	SourceRule      = "rule"
	SourceRuleLow   = "rule_low_confidence"
	SourceHeuristic = "heuristic"
	SourceBatchItem = "batch_error"
)

var allSources = []string{SourceCache, SourceMemory, SourceAI, SourceRule, SourceRuleLow, SourceHeuristic, SourceBatchItem}

// Metrics holds all Prometheus metrics for the categorizer.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	categorizations *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	classifierCalls *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "categorizer_operation_duration_seconds",
				Help:    "Duration of operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		categorizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_categorizations_total",
				Help: "Categorizations by the pipeline step that decided them.",
			},
			[]string{"source"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_external_errors_total",
				Help: "Total errors from collaborators (cache, memory, classifier).",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		classifierCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_classifier_calls_total",
				Help: "LLM classifier calls by outcome; shared counts callers served by an in-flight call.",
			},
			[]string{"outcome"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorizer_anomalies_total",
				Help: "Outliers flagged by severity.",
			},
			[]string{"severity"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrCategorization counts a categorization decided by source.
func (m *Metrics) IncrCategorization(source string) {
	m.categorizations.WithLabelValues(source).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrClassifierCall counts an LLM call outcome: success, error or shared.
func (m *Metrics) IncrClassifierCall(outcome string) {
	m.classifierCalls.WithLabelValues(outcome).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrAnomaly counts a flagged outlier.
func (m *Metrics) IncrAnomaly(severity domain.Severity) {
	m.anomalies.WithLabelValues(string(severity)).Inc()
}

// Snapshot returns the categorizer counters for GET /v1/metrics/categorizer.
func (m *Metrics) Snapshot() *domain.CategorizerMetrics {
	bySource := make(map[string]int64, len(allSources))
	var total float64
	for _, src := range allSources {
		v := getCounterValue(m.categorizations, src)
		bySource[src] = int64(v)
		total += v
	}

	hits := getCounterValue(m.cacheHits, "categorization")
	misses := getCounterValue(m.cacheMisses, "categorization")

	snap := &domain.CategorizerMetrics{
		TotalCategorizations: int64(total),
		BySource:             bySource,
		ClassifierErrors:     int64(getCounterValue(m.classifierCalls, "error")),
		SharedClassifierHits: int64(getCounterValue(m.classifierCalls, "shared")),
		PromptTokens:         int64(getCounterValue(m.tokensUsed, "prompt")),
		CompletionTokens:     int64(getCounterValue(m.tokensUsed, "completion")),
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	if total > 0 {
		snap.AIRate = float64(bySource[SourceAI]) / total
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
