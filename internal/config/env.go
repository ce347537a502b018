// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Runtime holds process-level settings read from the environment once at
// startup. It is separate from AppConfig, which arrives per run over HTTP.
type Runtime struct {
	DatabaseURL string // sqlite path; required before the pipeline may start
	APIKey      string // credential handed to the detector adapter
	ChunksDir   string // clip output directory
	Listen      string // HTTP listen address
}

const (
	defaultChunksDir = "video_chunks"
	defaultListen    = ":8000"
)

// FromEnv reads the runtime settings from the environment, applying defaults
// where the variable is unset.
func FromEnv() Runtime {
	rt := Runtime{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("GOOGLE_API_KEY"),
		ChunksDir:   os.Getenv("VIDEO_CHUNKS_DIR"),
		Listen:      os.Getenv("ARGUS_LISTEN"),
	}
	if rt.ChunksDir == "" {
		rt.ChunksDir = defaultChunksDir
	}
	if abs, err := filepath.Abs(rt.ChunksDir); err == nil {
		rt.ChunksDir = abs
	}
	if rt.Listen == "" {
		rt.Listen = defaultListen
	}
	return rt
}

// DatabasePath strips the optional sqlite URL prefixes from DatabaseURL and
// returns the on-disk path. Empty means the database is not configured.
func (rt Runtime) DatabasePath() string {
	p := rt.DatabaseURL
	for _, prefix := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(p, prefix) {
			p = strings.TrimPrefix(p, prefix)
			break
		}
	}
	return p
}
