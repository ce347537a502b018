// SPDX-License-Identifier: MIT

package chunker

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/media"
	"github.com/argus-video/argus/internal/metrics"
)

// activeClip is the clip currently being written.
type activeClip struct {
	writer      media.ClipWriter
	ongoingPath string
	startUTC    time.Time
	startMono   time.Time
	frames      int
}

// run is the reader loop. One iteration handles exactly one of: reconnect,
// failed read, or one frame.
func (c *Chunker) run() {
	defer close(c.done)
	defer c.running.Store(false)

	var (
		src   media.Source
		clip  *activeClip
		props media.StreamProps

		targetFrames        int
		retryDelay          = initialRetryDelay
		consecutiveFailures int
		readTimeouts        int
	)

	defer func() {
		if clip != nil {
			c.finalize(clip)
		}
		if src != nil {
			_ = src.Close()
		}
		s := c.Stats()
		c.logger.Info().
			Uint64("chunks", s.ChunkCount).
			Uint64(log.FieldFrames, s.TotalFrames).
			Uint64("reconnects", s.ReconnectCount).
			Dur("uptime", s.Uptime).
			Msg("chunker stopped")
	}()

	for !c.stopping() {
		// Disconnected: (re)open the stream.
		if src == nil {
			opened, err := c.cfg.Opener.Open(c.cfg.StreamURL)
			if err != nil {
				consecutiveFailures++
				metrics.StreamConnectFailuresTotal.Inc()
				c.logger.Warn().Err(err).
					Int("failures", consecutiveFailures).
					Int("max", c.cfg.MaxConnectFailures).
					Msg("failed to open stream")
				if consecutiveFailures >= c.cfg.MaxConnectFailures {
					c.logger.Error().Msg("max connection failures reached, stopping")
					return
				}
				if !c.sleep(retryDelay) {
					return
				}
				retryDelay = nextDelay(retryDelay)
				continue
			}

			props = opened.Props()
			if props.Width <= 0 || props.Height <= 0 {
				c.logger.Error().
					Str(log.FieldResolution, fmt.Sprintf("%dx%d", props.Width, props.Height)).
					Msg("invalid stream dimensions")
				_ = opened.Close()
				consecutiveFailures++
				if consecutiveFailures >= c.cfg.MaxConnectFailures {
					c.logger.Error().Msg("max connection failures reached, stopping")
					return
				}
				if !c.sleep(retryDelay) {
					return
				}
				retryDelay = nextDelay(retryDelay)
				continue
			}

			src = opened
			props.FPS = clampFPS(props.FPS)
			targetFrames = int(props.FPS) * int(c.cfg.ChunkDuration/time.Second)
			if targetFrames < 1 {
				targetFrames = 1
			}
			consecutiveFailures = 0
			readTimeouts = 0
			retryDelay = initialRetryDelay
			c.reconnectCount.Add(1)
			metrics.StreamReconnectsTotal.Inc()
			c.logger.Info().
				Str(log.FieldResolution, fmt.Sprintf("%dx%d", props.Width, props.Height)).
				Float64(log.FieldFPS, props.FPS).
				Int("target_frames", targetFrames).
				Msg("stream opened")
		}

		frame, err := src.Read(frameReadTimeout)
		if err != nil {
			readTimeouts++
			if readTimeouts >= c.cfg.MaxReadTimeouts || errors.Is(err, media.ErrSourceClosed) {
				c.logger.Warn().Err(err).Msg("stream read failed, reconnecting")
				if clip != nil {
					c.finalize(clip)
					clip = nil
				}
				_ = src.Close()
				src = nil
				readTimeouts = 0
				if !c.sleep(retryDelay) {
					return
				}
				retryDelay = nextDelay(retryDelay)
			} else if !c.sleep(readFailurePause) {
				return
			}
			continue
		}

		readTimeouts = 0
		c.totalFrames.Add(1)
		metrics.FramesReadTotal.Inc()
		now := time.Now()

		// Rollover: close the current clip when its wall duration or its
		// frame budget is reached.
		if clip != nil && (now.Sub(clip.startMono) >= c.cfg.ChunkDuration || clip.frames >= targetFrames) {
			c.finalize(clip)
			clip = nil
		}

		if clip == nil {
			opened, err := c.openClip(props, now)
			if err != nil {
				c.logger.Error().Err(err).Msg("failed to open clip writer")
				if !c.sleep(time.Second) {
					return
				}
				continue
			}
			clip = opened
		}

		if err := clip.writer.Write(frame); err != nil {
			c.logger.Error().Err(err).
				Str(log.FieldPath, clip.ongoingPath).
				Msg("frame write failed, finalizing clip")
			c.finalize(clip)
			clip = nil
			continue
		}
		clip.frames++
	}
}

// openClip starts a new ongoing clip file.
func (c *Chunker) openClip(props media.StreamProps, now time.Time) (*activeClip, error) {
	startUTC := now.UTC()
	ongoing := filepath.Join(c.cfg.OutputDir,
		fmt.Sprintf("%s_ongoing.%s", startUTC.Format(timestampLayout), c.cfg.Container))

	w, err := c.cfg.Writers.NewWriter(ongoing, props)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str(log.FieldPath, ongoing).Msg("new clip started")
	return &activeClip{
		writer:      w,
		ongoingPath: ongoing,
		startUTC:    startUTC,
		startMono:   now,
	}, nil
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// clampFPS maps the probed frame rate into [1, 120], defaulting to 30 when
// the probe reported nothing usable.
func clampFPS(fps float64) float64 {
	if fps <= 0 {
		return 30
	}
	if fps < 1 {
		return 1
	}
	if fps > 120 {
		return 120
	}
	return fps
}
