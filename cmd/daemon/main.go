// SPDX-License-Identifier: MIT

// Command daemon runs the argus surveillance pipeline: the HTTP control
// plane, the stream chunker and the detection workers in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/argus-video/argus/internal/api"
	"github.com/argus-video/argus/internal/bus"
	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/pipeline"
	"github.com/argus-video/argus/internal/store"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	listen := flag.String("listen", "", "HTTP listen address (overrides ARGUS_LISTEN)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "argus"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := config.FromEnv()
	if *listen != "" {
		rt.Listen = *listen
	}
	if err := os.MkdirAll(rt.ChunksDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str(log.FieldPath, rt.ChunksDir).Msg("failed to create chunks directory")
	}

	var events api.EventStore = store.Disabled{}
	if dbPath := rt.DatabasePath(); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			logger.Fatal().Err(err).Str(log.FieldPath, dbPath).Msg("failed to open database")
		}
		defer func() { _ = st.Close() }()
		events = st
		logger.Info().Str(log.FieldPath, dbPath).Msg("database ready")
	} else {
		logger.Warn().Msg("DATABASE_URL not set; pipeline start will be rejected")
	}
	if rt.APIKey == "" {
		logger.Warn().Msg("GOOGLE_API_KEY not set; detection calls will fail")
	}

	b := bus.New()
	pipe := pipeline.New(rt, b)
	server := api.New(pipe, events, b, rt.ChunksDir)

	httpSrv := &http.Server{
		Addr:              rt.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", rt.Listen).
		Str(log.FieldPath, rt.ChunksDir).
		Msg("starting argus")

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server failed")
	}

	if err := pipe.Stop(); err != nil && !errors.Is(err, domain.ErrServiceNotRunning) {
		logger.Error().Err(err).Msg("failed to stop pipeline")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown incomplete")
	}

	logger.Info().Msg("argus stopped")
}
