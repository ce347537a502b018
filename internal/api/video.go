// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/argus-video/argus/internal/domain"
)

// clipFilePath validates a requested clip path. The path must resolve inside
// the chunks directory; anything else is treated as not found so the endpoint
// cannot be used to probe the filesystem.
func (s *Server) clipFilePath(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.ErrInvalidVideoPath
	}

	abs, err := filepath.Abs(filepath.Clean(raw))
	if err != nil {
		return "", domain.ErrInvalidVideoPath
	}

	root, err := filepath.Abs(s.chunksDir)
	if err != nil {
		return "", domain.ErrInvalidVideoPath
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrInvalidVideoPath
	}
	return abs, nil
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	path, err := s.clipFilePath(r.URL.Query().Get("filepath"))
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, domain.ErrInvalidVideoPath)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
