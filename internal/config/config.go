// SPDX-License-Identifier: MIT

// Package config defines the per-run pipeline configuration and the process
// environment. An AppConfig is immutable for the lifetime of one run; at
// most one is active at a time.
package config

import (
	"strings"

	"github.com/argus-video/argus/internal/domain"
)

// AppConfig is the configuration submitted with POST /start.
type AppConfig struct {
	Model         string                   `json:"model"`
	StreamURL     string                   `json:"rtsp_url"`
	ChunkDuration int                      `json:"chunk_duration"`
	Context       string                   `json:"context"`
	Events        []domain.EventDefinition `json:"events"`
}

// Validate checks the required keys of an AppConfig. It mirrors the chunker's
// own construction-time checks so callers fail before any thread is spawned.
func (c AppConfig) Validate() error {
	var missing []string
	if c.StreamURL == "" {
		missing = append(missing, "rtsp_url")
	}
	if c.ChunkDuration == 0 {
		missing = append(missing, "chunk_duration")
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	if c.Context == "" {
		missing = append(missing, "context")
	}
	if len(c.Events) == 0 {
		missing = append(missing, "events")
	}
	if len(missing) > 0 {
		return domain.InvalidConfig("config is missing required keys: %s", strings.Join(missing, ", "))
	}
	if c.ChunkDuration < 0 {
		return domain.InvalidConfig("chunk_duration must be positive")
	}
	if !HasSupportedScheme(c.StreamURL) {
		return domain.InvalidConfig("stream URL must be rtsp:// or http(s)://")
	}
	return nil
}

// HasSupportedScheme reports whether url carries one of the stream schemes
// the chunker can open.
func HasSupportedScheme(url string) bool {
	return strings.HasPrefix(url, "rtsp://") ||
		strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://")
}
