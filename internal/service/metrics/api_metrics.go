package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coindash",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of dashboard API operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coindash",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by dashboard API operation",
		},
		[]string{"endpoint"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coindash",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open dashboard WebSocket connections",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, WSConnections)
	})
}
