package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_requests_total",
			Help: "Total number of knowledge graph API requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kg_request_duration_seconds",
			Help:    "Duration of knowledge graph API requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"method", "endpoint"},
	)
	processFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_process_failures_total",
			Help: "Total number of failed external tool runs by endpoint and reason",
		},
		[]string{"endpoint", "reason"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(processFailures)
}
