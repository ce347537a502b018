// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
)

// queueInfo mirrors the internal queue depths in /status responses.
type queueInfo struct {
	VideoChunksQueueSize    int `json:"video_chunks_queue_size"`
	EventDetectionQueueSize int `json:"event_detection_queue_size"`
}

type statusResponse struct {
	ServiceActive bool      `json:"service_active"`
	QueueInfo     queueInfo `json:"queue_info"`
	StreamURL     string    `json:"stream_url,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var cfg config.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, domain.InvalidConfig("malformed request body: %v", err))
		return
	}

	if err := s.pipe.Start(cfg, s.store.Insert); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info().
		Str(log.FieldStreamURL, cfg.StreamURL).
		Str(log.FieldRequestID, log.RequestIDFromContext(r.Context())).
		Msg("pipeline start accepted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "Services started successfully"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.pipe.Stop(); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info().
		Str(log.FieldRequestID, log.RequestIDFromContext(r.Context())).
		Msg("pipeline stop accepted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "Services stopped successfully"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.pipe.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		ServiceActive: st.Active,
		QueueInfo: queueInfo{
			VideoChunksQueueSize:    st.VideoPathQueue,
			EventDetectionQueueSize: st.DetectionQueue,
		},
		StreamURL: st.StreamURL,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.InvalidConfig("limit must be an integer"))
			return
		}
		limit = n
	}

	events, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Event{"events": events})
}

func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, domain.ErrEventNotFound)
		return
	}

	event, err := s.store.ByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service_active": s.pipe.Status().Active,
	})
}
