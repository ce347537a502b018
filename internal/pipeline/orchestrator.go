// SPDX-License-Identifier: MIT

// Package pipeline owns the bounded queues and the worker loops between the
// stream chunker and the event bus, plus the single-instance lifecycle.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/argus-video/argus/internal/bus"
	"github.com/argus-video/argus/internal/chunker"
	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/detector"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// QueueSize bounds both internal queues; the chunker drops on overflow.
	QueueSize = 100

	joinTimeout = 10 * time.Second
)

// EventSink persists one event and returns its assigned id. Implementations
// must be safe for use from the collection worker goroutine; each call gets
// its own storage session.
type EventSink func(ctx context.Context, e domain.Event) (int64, error)

// Detector is the adapter contract of the video-processing worker.
type Detector interface {
	DetectEvents(ctx context.Context, clipPath string, events []domain.EventDefinition, sceneContext string) error
}

// StreamChunker is the chunker handle the orchestrator tracks.
type StreamChunker interface {
	Start()
	Stop()
	Join(timeout time.Duration) error
	Stats() chunker.Stats
}

// Orchestrator wires chunker, detector and collector together. One instance
// serves the whole process; at most one run is active at a time.
type Orchestrator struct {
	rt     config.Runtime
	bus    *bus.Bus
	logger zerolog.Logger

	// Factories, replaceable in tests.
	newChunker  func(chunker.Config) (StreamChunker, error)
	newDetector func(out chan<- domain.Detection, cfg config.AppConfig) Detector

	mu         sync.Mutex
	state      State
	cfg        *config.AppConfig
	chunk      StreamChunker
	videoPaths chan string
	detections chan domain.Detection
	cancel     context.CancelFunc
	workers    *errgroup.Group
}

// New returns an idle orchestrator publishing to b.
func New(rt config.Runtime, b *bus.Bus) *Orchestrator {
	return &Orchestrator{
		rt:     rt,
		bus:    b,
		logger: log.WithComponent("pipeline"),
		state:  StateIdle,
		newChunker: func(cfg chunker.Config) (StreamChunker, error) {
			return chunker.New(cfg)
		},
		newDetector: func(out chan<- domain.Detection, cfg config.AppConfig) Detector {
			return detector.New(cfg.Model, rt.APIKey, out)
		},
	}
}

// Start validates cfg and launches the chunker and both workers. It rejects
// concurrent runs: of two racing Start calls exactly one wins.
func (o *Orchestrator) Start(cfg config.AppConfig, sink EventSink) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return domain.ErrServiceAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.rt.DatabasePath() == "" {
		return domain.ErrDatabaseNotConfigured
	}

	videoPaths := make(chan string, QueueSize)
	detections := make(chan domain.Detection, QueueSize)

	chunk, err := o.newChunker(chunker.Config{
		StreamURL:     cfg.StreamURL,
		OutputDir:     o.rt.ChunksDir,
		ChunkDuration: time.Duration(cfg.ChunkDuration) * time.Second,
		Output:        videoPaths,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	det := o.newDetector(detections, cfg)

	o.cfg = &cfg
	o.chunk = chunk
	o.videoPaths = videoPaths
	o.detections = detections
	o.cancel = cancel

	o.workers = &errgroup.Group{}
	o.workers.Go(func() error {
		o.videoProcessingWorker(ctx, videoPaths, det, cfg)
		return nil
	})
	o.workers.Go(func() error {
		o.collectionWorker(ctx, detections, sink)
		return nil
	})
	chunk.Start()

	if err := writeRunManifest(o.rt.ChunksDir, cfg, time.Now().UTC()); err != nil {
		o.logger.Warn().Err(err).Msg("failed to write run manifest")
	}

	o.state = StateRunning
	metrics.PipelineActive.Set(1)
	o.logger.Info().
		Str(log.FieldStreamURL, cfg.StreamURL).
		Str(log.FieldModel, cfg.Model).
		Int("chunk_duration_s", cfg.ChunkDuration).
		Int("catalog_size", len(cfg.Events)).
		Msg("pipeline started")
	return nil
}

// Stop signals all loops, joins them within the 10 s budget and resets the
// shared state so a subsequent Start begins cleanly.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return domain.ErrServiceNotRunning
	}
	o.state = StateStopping
	chunk := o.chunk
	cancel := o.cancel
	workers := o.workers
	o.mu.Unlock()

	o.logger.Info().Msg("stopping pipeline")
	cancel()

	chunk.Stop()
	if err := chunk.Join(joinTimeout); err != nil {
		o.logger.Warn().Err(err).Msg("chunker did not stop in time")
	}

	done := make(chan struct{})
	go func() {
		_ = workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		o.logger.Warn().Msg("pipeline workers did not stop in time")
	}

	o.mu.Lock()
	o.cfg = nil
	o.chunk = nil
	o.videoPaths = nil
	o.detections = nil
	o.cancel = nil
	o.workers = nil
	o.state = StateIdle
	o.mu.Unlock()

	metrics.PipelineActive.Set(0)
	metrics.QueueDepth.WithLabelValues("video_paths").Set(0)
	metrics.QueueDepth.WithLabelValues("detections").Set(0)
	o.logger.Info().Msg("pipeline stopped")
	return nil
}

// Status reports the lifecycle flag, queue depths and, while running, the
// stream URL.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{Active: o.state == StateRunning}
	if o.videoPaths != nil {
		st.VideoPathQueue = len(o.videoPaths)
	}
	if o.detections != nil {
		st.DetectionQueue = len(o.detections)
	}
	if o.cfg != nil {
		st.StreamURL = o.cfg.StreamURL
	}
	return st
}
