// SPDX-License-Identifier: MIT

package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/argus-video/argus/internal/config"
	"github.com/google/renameio/v2"
)

// runManifest describes the active run. It sits next to the clips so an
// operator can tell which configuration produced them.
type runManifest struct {
	StartedAt     time.Time `json:"started_at"`
	StreamURL     string    `json:"rtsp_url"`
	Model         string    `json:"model"`
	ChunkDuration int       `json:"chunk_duration"`
	EventCodes    []string  `json:"event_codes"`
}

// writeRunManifest atomically replaces run.json in dir. Readers never see a
// partially written file.
func writeRunManifest(dir string, cfg config.AppConfig, startedAt time.Time) error {
	codes := make([]string, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		codes = append(codes, e.Code)
	}

	m := runManifest{
		StartedAt:     startedAt,
		StreamURL:     cfg.StreamURL,
		Model:         cfg.Model,
		ChunkDuration: cfg.ChunkDuration,
		EventCodes:    codes,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run manifest: %w", err)
	}

	path := filepath.Join(dir, "run.json")
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending manifest: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace run manifest: %w", err)
	}
	return nil
}
