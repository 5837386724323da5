package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomePersisted       = "persisted"
	outcomeNotPersisted    = "not_persisted"
	outcomeRateUnavailable = "rate_unavailable"
)

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converter_provider_requests_total",
			Help: "Rate provider lookups by provider and status",
		},
		[]string{"provider", "status"},
	)

	providerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "converter_provider_duration_seconds",
			Help:    "Latency of rate provider lookups",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converter_conversions_total",
			Help: "Conversions by outcome",
		},
		[]string{"outcome"},
	)
)
