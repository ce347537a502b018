// SPDX-License-Identifier: MIT

// Package chunker maintains a live connection to a video stream and slices
// it into fixed-duration clip files. Finalized clips are handed to the
// video-path queue; an in-progress clip carries the _ongoing suffix until
// its atomic rename.
package chunker

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/media"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxReadTimeouts is the number of consecutive failed frame
	// reads tolerated before the stream is reopened.
	DefaultMaxReadTimeouts = 30
	// DefaultMaxConnectFailures is the number of consecutive failed open
	// attempts before the chunker gives up.
	DefaultMaxConnectFailures = 10

	initialRetryDelay = time.Second
	maxRetryDelay     = 60 * time.Second
	frameReadTimeout  = time.Second
	readFailurePause  = 50 * time.Millisecond
	defaultFlushDelay = 200 * time.Millisecond

	timestampLayout = "20060102150405"
)

// Config parametrizes one chunker instance.
type Config struct {
	StreamURL     string
	OutputDir     string
	ChunkDuration time.Duration
	Container     string // defaults to media.DefaultContainer

	MaxReadTimeouts    int
	MaxConnectFailures int
	FlushDelay         time.Duration // settle time before the finalize rename

	Opener  media.Opener
	Writers media.WriterFactory
	Output  chan<- string // video-path queue
}

// Stats is a read-only snapshot of the chunker counters.
type Stats struct {
	ChunkCount     uint64
	ReconnectCount uint64
	TotalFrames    uint64
	Uptime         time.Duration
}

// Chunker runs the reader loop on its own goroutine.
type Chunker struct {
	cfg    Config
	logger zerolog.Logger

	chunkCount     atomic.Uint64
	reconnectCount atomic.Uint64
	totalFrames    atomic.Uint64

	running    atomic.Bool
	startNanos atomic.Int64 // unix nanos of Start, 0 before the first Start

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New validates the configuration and prepares the output directory.
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkDuration <= 0 {
		return nil, domain.InvalidConfig("chunk duration must be positive")
	}
	if !config.HasSupportedScheme(cfg.StreamURL) {
		return nil, domain.InvalidConfig("stream URL must be rtsp:// or http(s)://")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, domain.InvalidConfig("create output directory %s: %v", cfg.OutputDir, err)
	}
	if cfg.Container == "" {
		cfg.Container = media.DefaultContainer
	}
	if cfg.MaxReadTimeouts <= 0 {
		cfg.MaxReadTimeouts = DefaultMaxReadTimeouts
	}
	if cfg.MaxConnectFailures <= 0 {
		cfg.MaxConnectFailures = DefaultMaxConnectFailures
	}
	if cfg.FlushDelay == 0 {
		cfg.FlushDelay = defaultFlushDelay
	}
	if cfg.Opener == nil {
		cfg.Opener = &media.FFmpegOpener{RTSPTCP: true}
	}
	if cfg.Writers == nil {
		cfg.Writers = &media.FFmpegWriterFactory{}
	}

	return &Chunker{
		cfg: cfg,
		logger: log.WithComponent("chunker").With().
			Str(log.FieldStreamURL, cfg.StreamURL).Logger(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Start launches the reader loop. Calling Start on a running chunker is a
// logged no-op.
func (c *Chunker) Start() {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Warn().Msg("chunker is already running")
		return
	}
	c.startNanos.Store(time.Now().UnixNano())
	go c.run()
	c.logger.Info().Msg("started video stream chunker")
}

// Stop requests graceful shutdown. Safe from any goroutine.
func (c *Chunker) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Join waits for the reader loop to exit.
func (c *Chunker) Join(timeout time.Duration) error {
	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("chunker did not stop within %s", timeout)
	}
}

// Healthy reports whether the reader loop is alive.
func (c *Chunker) Healthy() bool {
	return c.running.Load()
}

// Stats returns a snapshot of the counters. Uptime keeps counting from
// Start even after the loop has exited.
func (c *Chunker) Stats() Stats {
	var uptime time.Duration
	if start := c.startNanos.Load(); start != 0 {
		uptime = time.Since(time.Unix(0, start))
	}
	return Stats{
		ChunkCount:     c.chunkCount.Load(),
		ReconnectCount: c.reconnectCount.Load(),
		TotalFrames:    c.totalFrames.Load(),
		Uptime:         uptime,
	}
}

// sleep waits for d or until shutdown, whichever comes first. Returns false
// when the shutdown signal was observed.
func (c *Chunker) sleep(d time.Duration) bool {
	select {
	case <-c.stop:
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Chunker) stopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
