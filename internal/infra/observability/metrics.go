package observability

import (
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the cobrança service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	boletosGenerated   *prometheus.CounterVec
	remessasGenerated  *prometheus.CounterVec
	retornoEntries     *prometheus.CounterVec
	adapterFallbacks   *prometheus.CounterVec
	malformedRetornos  *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
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
				Name:    "cobranca_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		boletosGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_boletos_generated_total",
				Help: "Boletos generated, by bank and render kind.",
			},
			[]string{"bank", "render"},
		),
		remessasGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_remessas_generated_total",
				Help: "Remessa files generated, by bank, layout and adapter kind.",
			},
			[]string{"bank", "layout", "kind"},
		),
		retornoEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_retorno_entries_total",
				Help: "Settlement entries read from retorno files.",
			},
			[]string{"bank", "layout"},
		),
		adapterFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cnab_adapter_fallback_total",
				Help: "Adapter resolutions that degraded to the fallback adapter.",
			},
			[]string{"bank", "layout"},
		),
		malformedRetornos: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cnab_retorno_malformed_total",
				Help: "Retorno files rejected as malformed.",
			},
			[]string{"bank", "layout"},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_validation_failures_total",
				Help: "Boleto validations that did not pass, by kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
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

func (m *Metrics) IncrBoleto(bank, render string) {
	m.boletosGenerated.WithLabelValues(bank, render).Inc()
}

func (m *Metrics) IncrRemessa(bank, layout, kind string) {
	m.remessasGenerated.WithLabelValues(bank, layout, kind).Inc()
}

// AddRetornoEntries counts parsed settlement entries.
func (m *Metrics) AddRetornoEntries(bank, layout string, n int) {
	m.retornoEntries.WithLabelValues(bank, layout).Add(float64(n))
}

func (m *Metrics) IncrAdapterFallback(bank, layout string) {
	m.adapterFallbacks.WithLabelValues(bank, layout).Inc()
}

func (m *Metrics) IncrMalformedRetorno(bank, layout string) {
	m.malformedRetornos.WithLabelValues(bank, layout).Inc()
}

// IncrValidationFailure counts a failed validation. kind is "missing",
// "invalid", "barcode" or "bank_rules".
func (m *Metrics) IncrValidationFailure(kind string) {
	m.validationFailures.WithLabelValues(kind).Inc()
}

// AdapterFallbacks returns the fallback counter for one bank/layout pair.
func (m *Metrics) AdapterFallbacks(bank, layout string) float64 {
	return getCounterValue(m.adapterFallbacks, bank, layout)
}

// MalformedRetornos returns the malformed retorno counter for one bank/layout pair.
func (m *Metrics) MalformedRetornos(bank, layout string) float64 {
	return getCounterValue(m.malformedRetornos, bank, layout)
}

// Snapshot returns the cumulative counters served by GET /v1/metrics/cobranca.
func (m *Metrics) Snapshot() *domain.MetricsSnapshot {
	hits := sumCounter(m.cacheHits)
	misses := sumCounter(m.cacheMisses)

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.MetricsSnapshot{
		BoletosGerados:     int64(sumCounter(m.boletosGenerated)),
		RemessasGeradas:    int64(sumCounter(m.remessasGenerated)),
		RetornoEntries:     int64(sumCounter(m.retornoEntries)),
		AdapterFallbacks:   int64(sumCounter(m.adapterFallbacks)),
		RetornosMalformed:  int64(sumCounter(m.malformedRetornos)),
		ValidationFailures: int64(sumCounter(m.validationFailures)),
		ExternalErrors:     int64(sumCounter(m.externalErrors)),
		CacheHitRate:       hitRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
