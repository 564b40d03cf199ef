package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotcost_fetch_attempts_total",
		Help: "HTTP attempts made against upstream APIs, including retries.",
	}, []string{"host"})

	metricFetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotcost_fetch_retries_total",
		Help: "Retries scheduled after retryable upstream failures.",
	}, []string{"host"})

	metricLastRunRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spotcost_last_run_records",
		Help: "Combined records produced by the most recent pipeline run.",
	})

	metricLastRunGapHours = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spotcost_last_run_gap_hours",
		Help: "Hours dropped by the most recent run, by reason.",
	}, []string{"reason"})

	metricLastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spotcost_last_run_timestamp_seconds",
		Help: "Unix time of the most recent successful pipeline run.",
	})
)

func recordRunMetrics(result *CombineResult, finished int64) {
	metricLastRunRecords.Set(float64(len(result.Records)))
	metricLastRunGapHours.WithLabelValues("missing_price").Set(float64(result.MissingPriceHours))
	metricLastRunGapHours.WithLabelValues("production_only").Set(float64(result.ProductionOnlyHours))
	metricLastRunTimestamp.Set(float64(finished))
}
