// SPDX-License-Identifier: MIT

// Package media wraps ffmpeg/ffprobe child processes behind small interfaces
// so the chunker's state machine stays testable without a live stream.
package media

import (
	"errors"
	"time"
)

// StreamProps describes the decoded video elementary stream.
type StreamProps struct {
	Width  int
	Height int
	FPS    float64
}

// FrameSize returns the byte length of one raw BGR24 frame.
func (p StreamProps) FrameSize() int {
	return p.Width * p.Height * 3
}

var (
	// ErrReadTimeout is returned by Source.Read when no frame arrived
	// within the allowed window. The caller decides when to reconnect.
	ErrReadTimeout = errors.New("media: frame read timed out")

	// ErrSourceClosed is returned once the decode process has exited.
	ErrSourceClosed = errors.New("media: source closed")
)

// Source is an open live stream delivering raw frames in arrival order.
type Source interface {
	// Read blocks until the next frame is available or the timeout
	// elapses. The returned slice is only valid until the next Read.
	Read(timeout time.Duration) ([]byte, error)
	Props() StreamProps
	Close() error
}

// Opener connects to a stream URL and probes its properties.
type Opener interface {
	Open(url string) (Source, error)
}

// ClipWriter muxes raw frames into a single clip file.
type ClipWriter interface {
	Write(frame []byte) error
	// Close flushes and finalizes the container. It must be called
	// exactly once.
	Close() error
}

// WriterFactory opens a ClipWriter for the given path and stream shape.
type WriterFactory interface {
	NewWriter(path string, props StreamProps) (ClipWriter, error)
}
