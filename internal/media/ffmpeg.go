// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/argus-video/argus/internal/log"
)

// FFmpegOpener opens live streams by decoding them to raw BGR24 frames via
// an ffmpeg child process.
type FFmpegOpener struct {
	FFmpegBin  string
	FFprobeBin string
	RTSPTCP    bool // request TCP transport for rtsp:// sources
}

type ffmpegSource struct {
	props  StreamProps
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *lineRing

	frames chan []byte // capacity 1: minimal receive buffering
	errs   chan error

	closeOnce sync.Once
	done      chan struct{}
}

// Open probes the stream, then starts the decode process. The returned
// source delivers frames in arrival order with a single frame of buffering.
func (o *FFmpegOpener) Open(url string) (Source, error) {
	props, err := Probe(context.Background(), o.FFprobeBin, url, o.RTSPTCP)
	if err != nil {
		return nil, err
	}
	if props.Width <= 0 || props.Height <= 0 {
		return nil, fmt.Errorf("invalid stream dimensions %dx%d", props.Width, props.Height)
	}

	bin := o.FFmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
	}
	if o.RTSPTCP && strings.HasPrefix(url, "rtsp://") {
		args = append(args, "-rtsp_transport", "tcp")
	}
	args = append(args,
		"-i", url,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	ring := newLineRing(32)
	cmd.Stderr = ring

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegSource{
		props:  props,
		cmd:    cmd,
		cancel: cancel,
		stderr: ring,
		frames: make(chan []byte, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.pump(stdout)
	return s, nil
}

// pump reads fixed-size frames off the decode pipe and hands them to Read.
func (s *ffmpegSource) pump(r io.Reader) {
	size := s.props.FrameSize()
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			select {
			case s.errs <- fmt.Errorf("%w: %v", ErrSourceClosed, err):
			default:
			}
			return
		}
		select {
		case s.frames <- buf:
		case <-s.done:
			return
		}
	}
}

func (s *ffmpegSource) Read(timeout time.Duration) ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return nil, err
	case <-time.After(timeout):
		return nil, ErrReadTimeout
	case <-s.done:
		return nil, ErrSourceClosed
	}
}

func (s *ffmpegSource) Props() StreamProps {
	return s.props
}

func (s *ffmpegSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		if err := s.cmd.Wait(); err != nil {
			if lines := s.stderr.Last(5); len(lines) > 0 {
				logger := log.WithComponent("media")
				logger.Debug().
					Strs("stderr", lines).
					Msg("ffmpeg decode exited with error")
			}
		}
	})
	return nil
}

// lineRing keeps the last N lines of a process's stderr for diagnostics.
type lineRing struct {
	mu    sync.Mutex
	lines []string
	max   int
	part  string
}

func newLineRing(max int) *lineRing {
	return &lineRing{max: max}
}

func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := r.part + string(p)
	for {
		line, rest, ok := strings.Cut(buf, "\n")
		if !ok {
			break
		}
		r.lines = append(r.lines, line)
		if len(r.lines) > r.max {
			r.lines = r.lines[1:]
		}
		buf = rest
	}
	r.part = buf
	return len(p), nil
}

// Last returns up to n of the most recent lines.
func (r *lineRing) Last(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}
