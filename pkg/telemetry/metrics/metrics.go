package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/telemetry"
)

// Reporter bridges the pipeline's telemetry sink onto Prometheus
// collectors. Stage timings land in a duration histogram labelled by
// scope; well-known metric scopes get dedicated collectors with buckets
// sized for their value ranges, and anything else falls through to a
// generic gauge.
type Reporter struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	tokensActual  *prometheus.HistogramVec
	tokenAccuracy *prometheus.HistogramVec
	observations  *prometheus.GaugeVec
}

// NewReporter creates and registers the pipeline collectors. A nil
// registry gets a fresh one.
func NewReporter(cfg config.MetricsConfig, registry *prometheus.Registry) *Reporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "pollux"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "pipeline"
	}

	r := &Reporter{
		registry: registry,

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stage operations in seconds",
				// Spans rate-limit waits through long generation calls.
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"scope", "provider", "model"},
		),

		tokensActual: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_actual",
				Help:      "Provider-reported total tokens per generation call",
				Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
			},
			[]string{"provider", "model"},
		),

		tokenAccuracy: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "token_estimate_accuracy_ratio",
				Help:      "Actual tokens divided by estimated expected tokens",
				Buckets:   []float64{0.25, 0.5, 0.75, 0.9, 1.0, 1.1, 1.25, 1.5, 2.0, 4.0},
			},
			[]string{"provider", "model"},
		),

		observations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "observation",
				Help:      "Last value recorded for scopes without a dedicated collector",
			},
			[]string{"scope"},
		),
	}

	registry.MustRegister(r.stageDuration, r.tokensActual, r.tokenAccuracy, r.observations)
	return r
}

// Registry exposes the underlying registry for HTTP scraping setups.
func (r *Reporter) Registry() *prometheus.Registry { return r.registry }

// RecordTiming implements telemetry.Reporter.
func (r *Reporter) RecordTiming(scope string, duration time.Duration, meta telemetry.Metadata) {
	r.stageDuration.WithLabelValues(scope, meta["provider"], meta["model"]).Observe(duration.Seconds())
}

// RecordMetric implements telemetry.Reporter.
func (r *Reporter) RecordMetric(scope string, value float64, meta telemetry.Metadata) {
	switch scope {
	case "api.tokens.actual":
		r.tokensActual.WithLabelValues(meta["provider"], meta["model"]).Observe(value)
	case "api.tokens.accuracy":
		r.tokenAccuracy.WithLabelValues(meta["provider"], meta["model"]).Observe(value)
	default:
		r.observations.WithLabelValues(scope).Set(value)
	}
}
