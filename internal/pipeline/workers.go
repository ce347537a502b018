// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/metrics"
	"github.com/rs/zerolog"
)

// dequeueWait bounds each blocking receive so the loops notice cancellation
// even when their queue stays empty.
const dequeueWait = 1 * time.Second

// videoProcessingWorker drains finalized clip paths and runs the detector on
// each. A failed or panicking detection never takes the loop down; the next
// clip is processed regardless.
func (o *Orchestrator) videoProcessingWorker(ctx context.Context, videoPaths <-chan string, det Detector, cfg config.AppConfig) {
	logger := log.WithComponent("video_worker")
	logger.Debug().Msg("video processing worker started")
	defer logger.Debug().Msg("video processing worker stopped")

	timer := time.NewTimer(dequeueWait)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(dequeueWait)

		select {
		case <-ctx.Done():
			return
		case path, ok := <-videoPaths:
			if !ok {
				return
			}
			metrics.QueueDepth.WithLabelValues("video_paths").Set(float64(len(videoPaths)))
			o.processClip(ctx, logger, det, cfg, path)
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) processClip(ctx context.Context, logger zerolog.Logger, det Detector, cfg config.AppConfig, path string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str(log.FieldPath, path).
				Msg("detection panicked")
		}
	}()

	if err := det.DetectEvents(ctx, path, cfg.Events, cfg.Context); err != nil {
		logger.Error().Err(err).Str(log.FieldPath, path).Msg("detection failed")
	}
}

// collectionWorker drains detections, persists each as an event and publishes
// it on the bus. A persistence failure is logged and counted but never
// suppresses the publish; such events carry id 0.
func (o *Orchestrator) collectionWorker(ctx context.Context, detections <-chan domain.Detection, sink EventSink) {
	logger := log.WithComponent("collection_worker")
	logger.Debug().Msg("collection worker started")
	defer logger.Debug().Msg("collection worker stopped")

	timer := time.NewTimer(dequeueWait)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(dequeueWait)

		select {
		case <-ctx.Done():
			return
		case d, ok := <-detections:
			if !ok {
				return
			}
			metrics.QueueDepth.WithLabelValues("detections").Set(float64(len(detections)))
			o.collect(ctx, logger, sink, d)
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) collect(ctx context.Context, logger zerolog.Logger, sink EventSink, d domain.Detection) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("collection panicked")
		}
	}()

	d = d.Normalize(time.Now())
	e := domain.Event{
		Timestamp:   d.Timestamp,
		Code:        d.Code,
		Description: d.Description,
		VideoPath:   d.VideoPath,
		Explanation: d.Explanation,
	}

	id, err := sink(ctx, e)
	if err != nil {
		metrics.PersistFailuresTotal.Inc()
		logger.Error().Err(err).
			Str(log.FieldEventCode, e.Code).
			Str(log.FieldPath, e.VideoPath).
			Msg("failed to persist event")
	} else {
		e.ID = id
		metrics.EventsPersistedTotal.Inc()
	}

	o.bus.Publish(e)
	logger.Info().
		Int64(log.FieldEventID, e.ID).
		Str(log.FieldEventCode, e.Code).
		Str(log.FieldPath, e.VideoPath).
		Msg("event collected")
}
