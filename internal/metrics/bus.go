// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "argus_bus_subscribers",
		Help: "Current number of live event subscribers",
	})

	BusPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_bus_published_total",
		Help: "Total number of events published to the live bus",
	})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_bus_dropped_total",
		Help: "Total number of events dropped per subscriber (buffer full)",
	}, []string{"reason"})
)

// IncBusDrop records an event dropped for a single subscriber.
func IncBusDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(reason).Inc()
}
