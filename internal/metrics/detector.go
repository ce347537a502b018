// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_detector_calls_total",
		Help: "Total number of detector adapter calls by result",
	}, []string{"result"})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_detections_total",
		Help: "Total number of detections parsed from model responses",
	})

	DetectorCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "argus_detector_call_duration_seconds",
		Help:    "Latency of detector adapter calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})
)
