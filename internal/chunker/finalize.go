// SPDX-License-Identifier: MIT

package chunker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/metrics"
)

const enqueueTimeout = time.Second

// finalize closes the clip writer, renames the ongoing file to its final
// name and hands the path to the video-path queue. Empty clips are removed.
// The rename stays on one filesystem, so a reader never observes a partial
// final-named file.
func (c *Chunker) finalize(clip *activeClip) {
	if clip == nil || clip.writer == nil {
		return
	}

	if err := clip.writer.Close(); err != nil {
		c.logger.Error().Err(err).
			Str(log.FieldPath, clip.ongoingPath).
			Msg("clip writer close failed")
	}

	// Let the muxer's buffers reach the disk before we look at the file.
	if c.cfg.FlushDelay > 0 {
		time.Sleep(c.cfg.FlushDelay)
	}

	info, err := os.Stat(clip.ongoingPath)
	if clip.frames == 0 || err != nil || info.Size() == 0 {
		c.logger.Warn().
			Str(log.FieldPath, clip.ongoingPath).
			Int(log.FieldFrames, clip.frames).
			Msg("dropping empty clip")
		_ = os.Remove(clip.ongoingPath)
		metrics.IncChunkDrop("empty")
		return
	}

	endUTC := time.Now().UTC()
	finalPath := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s_%s.%s",
		clip.startUTC.Format(timestampLayout),
		endUTC.Format(timestampLayout),
		c.cfg.Container))

	if err := os.Rename(clip.ongoingPath, finalPath); err != nil {
		c.logger.Error().Err(err).
			Str(log.FieldPath, clip.ongoingPath).
			Str(log.FieldFinalPath, finalPath).
			Msg("clip rename failed")
		metrics.IncChunkDrop("rename_failed")
		return
	}

	count := c.chunkCount.Add(1)
	metrics.ChunksFinalizedTotal.Inc()
	c.logger.Info().
		Uint64("chunk", count).
		Str(log.FieldFinalPath, finalPath).
		Int(log.FieldFrames, clip.frames).
		Msg("clip finalized")

	if c.cfg.Output == nil {
		return
	}
	select {
	case c.cfg.Output <- finalPath:
	case <-time.After(enqueueTimeout):
		// Ingestion continuity beats completeness: the reader must not
		// fall behind the live stream. The file stays on disk.
		c.logger.Error().
			Str(log.FieldFinalPath, finalPath).
			Msg("output queue full, dropped chunk path")
		metrics.IncChunkDrop("queue_full")
	}
}
