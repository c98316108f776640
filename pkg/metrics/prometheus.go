package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	sections        *prometheus.CounterVec
	buildLatency    prometheus.Histogram
	snapshotsSent   *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry,
// which may only happen once per process.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coindash_provider_calls_total",
				Help: "Upstream provider calls by outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coindash_provider_duration_seconds",
				Help:    "Latency of upstream provider calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"provider", "operation"},
		),
		sections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coindash_dashboard_sections_total",
				Help: "Dashboard sections built, by availability",
			},
			[]string{"section", "status"},
		),
		buildLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coindash_dashboard_build_duration_seconds",
				Help:    "Duration of a full dashboard build in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		snapshotsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coindash_snapshots_sent_total",
				Help: "Dashboard snapshots handed to a sink",
			},
			[]string{"backend", "symbol"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coindash_last_price_usd",
				Help: "Last quoted USD price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordProviderCall records one upstream call and whether it failed.
func (r *Recorder) RecordProviderCall(provider, op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.providerCalls.WithLabelValues(provider, op, outcome).Inc()
	r.providerLatency.WithLabelValues(provider, op).Observe(d.Seconds())
}

// RecordSection counts a section as available or unavailable.
func (r *Recorder) RecordSection(section string, available bool) {
	status := "available"
	if !available {
		status = "unavailable"
	}
	r.sections.WithLabelValues(section, status).Inc()
}

func (r *Recorder) RecordBuild(d time.Duration) {
	r.buildLatency.Observe(d.Seconds())
}

func (r *Recorder) RecordSnapshotSent(backend, symbol string) {
	r.snapshotsSent.WithLabelValues(backend, symbol).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
