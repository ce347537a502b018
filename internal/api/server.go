// SPDX-License-Identifier: MIT

// Package api is the HTTP control plane of the detection pipeline: lifecycle
// endpoints, event queries, the live SSE feed and clip downloads.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/argus-video/argus/internal/api/middleware"
	"github.com/argus-video/argus/internal/bus"
	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/pipeline"
)

// Pipeline is the lifecycle surface the server drives.
type Pipeline interface {
	Start(cfg config.AppConfig, sink pipeline.EventSink) error
	Stop() error
	Status() pipeline.Status
}

// EventStore is the read/write surface over persisted events.
type EventStore interface {
	Insert(ctx context.Context, e domain.Event) (int64, error)
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
	ByID(ctx context.Context, id int64) (domain.Event, error)
}

// Server holds the handler dependencies. Construct with New, mount via
// Router.
type Server struct {
	pipe      Pipeline
	store     EventStore
	bus       *bus.Bus
	chunksDir string
	logger    zerolog.Logger
}

// New wires the control plane against its collaborators. chunksDir confines
// the /video endpoint; paths outside it are rejected.
func New(pipe Pipeline, store EventStore, b *bus.Bus, chunksDir string) *Server {
	return &Server{
		pipe:      pipe,
		store:     store,
		bus:       b,
		chunksDir: chunksDir,
		logger:    log.WithComponent("api"),
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)

	r.Group(func(r chi.Router) {
		r.Use(middleware.LifecycleRateLimit())
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
	})

	r.Get("/status", s.handleStatus)
	r.Get("/events", s.handleEvents)
	r.Get("/events/id/{id}", s.handleEventByID)
	r.Get("/events/stream", s.handleEventStream)
	r.Get("/video", s.handleVideo)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
