// SPDX-License-Identifier: MIT

package media

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

// Default container parameters for clip files.
const (
	DefaultContainer = "mp4"
	DefaultFourCC    = "H264"
)

// FFmpegWriterFactory muxes raw BGR24 frames into H.264/MP4 clips via one
// ffmpeg process per clip.
type FFmpegWriterFactory struct {
	FFmpegBin string
}

type ffmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *lineRing
	closed bool
}

const writerDrainTimeout = 10 * time.Second

// NewWriter starts the mux process for one clip. The stream shape must match
// the frames subsequently written.
func (f *FFmpegWriterFactory) NewWriter(path string, props StreamProps) (ClipWriter, error) {
	if props.Width <= 0 || props.Height <= 0 || props.FPS <= 0 {
		return nil, fmt.Errorf("invalid writer properties %dx%d@%.1f", props.Width, props.Height, props.FPS)
	}
	bin := f.FFmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", props.Width, props.Height),
		"-framerate", strconv.FormatFloat(props.FPS, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", DefaultContainer,
		"-y", path,
	}

	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	ring := newLineRing(32)
	cmd.Stderr = ring

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg writer: %w", err)
	}
	return &ffmpegWriter{cmd: cmd, stdin: stdin, stderr: ring}, nil
}

func (w *ffmpegWriter) Write(frame []byte) error {
	if w.closed {
		return fmt.Errorf("write on closed clip writer")
	}
	if _, err := w.stdin.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close ends the raw input; ffmpeg then flushes the MP4 moov atom and exits.
func (w *ffmpegWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stdin.Close(); err != nil {
		_ = w.cmd.Process.Kill()
		_ = w.cmd.Wait()
		return fmt.Errorf("close writer input: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg mux: %w (stderr: %v)", err, w.stderr.Last(3))
		}
		return nil
	case <-time.After(writerDrainTimeout):
		_ = w.cmd.Process.Kill()
		<-done
		return fmt.Errorf("ffmpeg mux did not exit within %s", writerDrainTimeout)
	}
}
