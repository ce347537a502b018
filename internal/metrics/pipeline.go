// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "argus_pipeline_active",
		Help: "1 while the detection pipeline is running, 0 otherwise",
	})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "argus_queue_depth",
		Help: "Current depth of the internal pipeline queues",
	}, []string{"queue"})

	QueueDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_queue_drops_total",
		Help: "Total number of items dropped on queue enqueue timeout",
	}, []string{"queue"})

	EventsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_events_persisted_total",
		Help: "Total number of events written to the database",
	})

	PersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_persist_failures_total",
		Help: "Total number of failed event writes",
	})
)
