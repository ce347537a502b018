// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/metrics"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// handleEventStream streams every published event as one SSE frame. The
// subscription is torn down when the client disconnects, so a dead client
// never holds a bus buffer.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			ErrorCode: "VIDEO_PROCESSING_FAILED",
			Message:   "streaming unsupported by connection",
		})
		return
	}

	sub := s.bus.Subscribe()
	defer sub.Close()

	metrics.SSEClients.Inc()
	defer metrics.SSEClients.Dec()

	logger := s.logger.With().
		Str(log.FieldRequestID, log.RequestIDFromContext(r.Context())).
		Logger()
	logger.Debug().Msg("event stream client connected")
	defer logger.Debug().Msg("event stream client disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				logger.Error().Err(err).Int64(log.FieldEventID, e.ID).Msg("failed to encode event")
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
