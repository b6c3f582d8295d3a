package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradepilot",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of trading API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepilot",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by trading API endpoint",
		},
		[]string{"endpoint"},
	)

	GateRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepilot",
			Subsystem: "risk",
			Name:      "rejections_total",
			Help:      "Signals rejected by the risk gate, by symbol",
		},
		[]string{"symbol"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, GateRejections)
	})
}
