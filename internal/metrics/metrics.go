package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxrate_source_fetch_total",
		Help: "Marketplace fetch calls by source and outcome",
	}, []string{"source", "outcome"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fxrate_source_fetch_duration_seconds",
		Help:    "Latency of a single marketplace fetch",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	}, []string{"source"})

	SourcesSucceeded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxrate_sources_succeeded",
		Help: "Number of marketplaces that produced quotes in the last poll",
	})

	RawRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxrate_rate_raw",
		Help: "Last accepted consensus rate",
	})

	SmoothedRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fxrate_rate_smoothed",
		Help: "Last accepted smoothed rate",
	})

	SmoothingResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxrate_smoothing_resets_total",
		Help: "Times the smoothing filter restarted from the raw value",
	})

	CacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxrate_cache_fallback_total",
		Help: "Requests answered from the last stored reading because every source failed",
	})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxrate_errors_total",
		Help: "Errors by type",
	}, []string{"type"})

	PipelineLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxrate_pipeline_latency_seconds",
		Help:    "End-to-end latency of GetCurrentRate",
		Buckets: prometheus.DefBuckets,
	})
)
