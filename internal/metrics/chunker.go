// SPDX-License-Identifier: MIT

// Package metrics defines the prometheus collectors of the argus daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChunksFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_chunks_finalized_total",
		Help: "Total number of clip files finalized and renamed",
	})

	ChunksDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_chunks_dropped_total",
		Help: "Total number of clips dropped by reason (empty, queue_full, rename_failed)",
	}, []string{"reason"})

	StreamReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_stream_reconnects_total",
		Help: "Total number of successful stream (re)connections",
	})

	StreamConnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_stream_connect_failures_total",
		Help: "Total number of failed stream open attempts",
	})

	FramesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argus_frames_read_total",
		Help: "Total number of frames read from the live stream",
	})
)

// IncChunkDrop records a dropped clip with a concrete reason.
func IncChunkDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	ChunksDroppedTotal.WithLabelValues(reason).Inc()
}
