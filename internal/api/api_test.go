// SPDX-License-Identifier: MIT

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/argus-video/argus/internal/bus"
	"github.com/argus-video/argus/internal/config"
	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/pipeline"
)

type fakePipeline struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	status   pipeline.Status
	lastCfg  config.AppConfig
	sink     pipeline.EventSink
}

func (f *fakePipeline) Start(cfg config.AppConfig, sink pipeline.EventSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.lastCfg = cfg
	f.sink = sink
	f.status = pipeline.Status{Active: true, StreamURL: cfg.StreamURL}
	return nil
}

func (f *fakePipeline) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.status = pipeline.Status{}
	return nil
}

func (f *fakePipeline) Status() pipeline.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

type fakeStore struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *fakeStore) Insert(_ context.Context, e domain.Event) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, e)
	return e.ID, nil
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if limit <= 0 || limit > len(f.events) {
		limit = len(f.events)
	}
	out := make([]domain.Event, limit)
	copy(out, f.events[:limit])
	return out, nil
}

func (f *fakeStore) ByID(_ context.Context, id int64) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func newTestServer(t *testing.T) (*Server, *fakePipeline, *fakeStore, *bus.Bus, string) {
	t.Helper()
	fp := &fakePipeline{}
	fs := &fakeStore{}
	b := bus.New()
	dir := t.TempDir()
	return New(fp, fs, b, dir), fp, fs, b, dir
}

func startBody() string {
	return `{
		"model": "gemini-2.0-flash",
		"rtsp_url": "rtsp://camera.local:554/stream",
		"chunk_duration": 5,
		"context": "loading dock",
		"events": [{"event_code": "intrusion", "event_description": "person enters", "detection_guidelines": ""}]
	}`
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartReturnsSuccessMessage(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/start", startBody())
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"Services started successfully"}`, rec.Body.String())
	require.Equal(t, "rtsp://camera.local:554/stream", fp.lastCfg.StreamURL)
	require.NotNil(t, fp.sink, "store insert is handed to the pipeline")
}

func TestStartWhileRunningConflicts(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)
	fp.startErr = domain.ErrServiceAlreadyRunning

	rec := doRequest(t, s, http.MethodPost, "/start", startBody())
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "SERVICE_ALREADY_RUNNING", decodeError(t, rec).ErrorCode)
}

func TestStartMalformedBodyIsBadRequest(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/start", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_CONFIG", decodeError(t, rec).ErrorCode)
}

func TestStartInvalidConfigIsBadRequest(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)
	fp.startErr = domain.InvalidConfig("missing required config keys: model")

	rec := doRequest(t, s, http.MethodPost, "/start", `{"rtsp_url":"rtsp://x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "INVALID_CONFIG", body.ErrorCode)
	require.Contains(t, body.Message, "model")
}

func TestStopWhenIdleConflicts(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)
	fp.stopErr = domain.ErrServiceNotRunning

	rec := doRequest(t, s, http.MethodPost, "/stop", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "SERVICE_NOT_RUNNING", decodeError(t, rec).ErrorCode)
}

func TestStatusShape(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)
	fp.status = pipeline.Status{
		Active:         true,
		VideoPathQueue: 3,
		DetectionQueue: 1,
		StreamURL:      "rtsp://camera.local:554/stream",
	}

	rec := doRequest(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.ServiceActive)
	require.Equal(t, 3, got.QueueInfo.VideoChunksQueueSize)
	require.Equal(t, 1, got.QueueInfo.EventDetectionQueueSize)
	require.Equal(t, "rtsp://camera.local:554/stream", got.StreamURL)
}

func TestStatusIdleOmitsStreamURL(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "stream_url")
}

func TestEventsListEnvelope(t *testing.T) {
	s, _, fs, _, _ := newTestServer(t)
	_, err := fs.Insert(context.Background(), domain.Event{
		Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Code:        "intrusion",
		Description: "person enters",
		VideoPath:   "/clips/a.mp4",
	})
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/events?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Events []domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Events, 1)
	require.Equal(t, "intrusion", envelope.Events[0].Code)
}

func TestEventsEmptyListIsNotNull(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestEventsRejectsNonNumericLimit(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/events?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_CONFIG", decodeError(t, rec).ErrorCode)
}

func TestEventByIDNotFound(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/events/id/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "EVENT_NOT_FOUND", decodeError(t, rec).ErrorCode)

	rec = doRequest(t, s, http.MethodGet, "/events/id/abc", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventByIDRoundTrip(t *testing.T) {
	s, _, fs, _, _ := newTestServer(t)
	id, err := fs.Insert(context.Background(), domain.Event{
		Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Code:        "fire",
		Description: "visible flames",
		VideoPath:   "/clips/b.mp4",
		Explanation: "smoke",
	})
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/events/id/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, id, got.ID)
	require.Equal(t, "fire", got.Code)
}

func TestVideoServesClipFromChunksDir(t *testing.T) {
	s, _, _, _, dir := newTestServer(t)
	clip := filepath.Join(dir, "20250601100000_20250601100005.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("mp4-bytes"), 0o644))

	rec := doRequest(t, s, http.MethodGet, "/video?filepath="+clip, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "20250601100000_20250601100005.mp4")
	require.Equal(t, "mp4-bytes", rec.Body.String())
}

func TestVideoMissingFileIs404(t *testing.T) {
	s, _, _, _, dir := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/video?filepath="+filepath.Join(dir, "nope.mp4"), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "INVALID_VIDEO_PATH", decodeError(t, rec).ErrorCode)
}

func TestVideoRejectsPathsOutsideChunksDir(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	for _, path := range []string{"", "/etc/passwd", "../../etc/passwd"} {
		rec := doRequest(t, s, http.MethodGet, "/video?filepath="+path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, "path %q", path)
	}
}

func TestCORSAllowsAllOrigins(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, "http://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/start", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestEventStreamDeliversSSEFrames(t *testing.T) {
	s, _, _, b, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Give the handler time to subscribe before publishing.
	require.Eventually(t, func() bool { return b.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.Publish(domain.Event{
		ID:          7,
		Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Code:        "intrusion",
		Description: "person enters",
		VideoPath:   "/clips/a.mp4",
	})

	scanner := bufio.NewScanner(resp.Body)
	var frame string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			frame = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, frame)

	var got domain.Event
	require.NoError(t, json.Unmarshal([]byte(frame), &got))
	require.EqualValues(t, 7, got.ID)
	require.Equal(t, "intrusion", got.Code)

	cancel()
	require.Eventually(t, func() bool { return b.Len() == 0 }, 2*time.Second, 10*time.Millisecond, "subscription removed on disconnect")
}

func TestLifecycleEndpointsAreRateLimited(t *testing.T) {
	s, fp, _, _, _ := newTestServer(t)
	fp.stopErr = domain.ErrServiceNotRunning

	router := s.Router()
	limited := false
	for i := 0; i < 15; i++ {
		req := httptest.NewRequest(http.MethodPost, "/stop", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited, "repeated lifecycle calls hit the limiter")
}
