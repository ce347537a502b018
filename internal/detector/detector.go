// SPDX-License-Identifier: MIT

// Package detector submits clip files to a multimodal vision model and
// turns its response into detections on the detection queue. The adapter
// keeps no state between calls.
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/media"
	"github.com/argus-video/argus/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	callTimeout    = 30 * time.Second
	enqueueTimeout = time.Second
)

// Detector classifies clips against the event catalog via the Gemini
// generateContent endpoint.
type Detector struct {
	model   string
	apiKey  string
	baseURL string
	http    *http.Client
	output  chan<- domain.Detection
	logger  zerolog.Logger
}

// Option adjusts a Detector, mainly for tests.
type Option func(*Detector)

// WithBaseURL points the adapter at a different API host.
func WithBaseURL(u string) Option {
	return func(d *Detector) { d.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Detector) { d.http = c }
}

// New returns a detector publishing onto output.
func New(model, apiKey string, output chan<- domain.Detection, opts ...Option) *Detector {
	d := &Detector{
		model:   model,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: callTimeout},
		output:  output,
		logger:  log.WithComponent("detector").With().Str(log.FieldModel, model).Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request/response shapes of the generateContent API, reduced to the fields
// we use.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// rawDetection is one element of the model's JSON answer.
type rawDetection struct {
	EventCode   string `json:"event_code"`
	Timestamp   string `json:"event_timestamp"`
	Explanation string `json:"event_detection_explanation_by_ai"`
}

// DetectEvents classifies one clip and enqueues every parsed detection.
// Failures are reported to the caller, which logs and moves on; the clip is
// considered consumed either way. Clip files are never deleted here.
func (d *Detector) DetectEvents(ctx context.Context, clipPath string, events []domain.EventDefinition, sceneContext string) error {
	start := time.Now()
	detections, err := d.classify(ctx, clipPath, events, sceneContext)
	metrics.DetectorCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DetectorCallsTotal.WithLabelValues("error").Inc()
		return domain.DetectionFailed(err)
	}
	metrics.DetectorCallsTotal.WithLabelValues("ok").Inc()

	for _, det := range detections {
		select {
		case d.output <- det:
			metrics.DetectionsTotal.Inc()
		case <-time.After(enqueueTimeout):
			metrics.QueueDropsTotal.WithLabelValues("detections").Inc()
			d.logger.Error().
				Str(log.FieldEventCode, det.Code).
				Str(log.FieldPath, clipPath).
				Msg("detection queue full, result dropped")
		}
	}
	return nil
}

func (d *Detector) classify(ctx context.Context, clipPath string, events []domain.EventDefinition, sceneContext string) ([]domain.Detection, error) {
	clip, err := os.ReadFile(clipPath)
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: "video/" + media.DefaultContainer,
					Data:     base64.StdEncoding.EncodeToString(clip),
				}},
				{Text: buildPrompt(sceneContext, events)},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		d.baseURL, url.PathEscape(d.model), url.QueryEscape(d.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("model returned HTTP %d: %s", res.StatusCode, body)
	}

	var gr generateResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, nil
	}

	var text string
	for _, p := range gr.Candidates[0].Content.Parts {
		text += p.Text
	}

	var raw []rawDetection
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse detections: %w", err)
	}

	descriptions := make(map[string]string, len(events))
	for _, e := range events {
		descriptions[e.Code] = e.Description
	}

	out := make([]domain.Detection, 0, len(raw))
	for _, r := range raw {
		det := domain.Detection{
			Code:        r.EventCode,
			Description: descriptions[r.EventCode],
			Explanation: r.Explanation,
			VideoPath:   clipPath,
		}
		if ts, err := parseTimestamp(r.Timestamp); err == nil {
			det.Timestamp = ts
		} else if r.Timestamp != "" {
			d.logger.Debug().Str("timestamp", r.Timestamp).Msg("unparseable detection timestamp")
		}
		out = append(out, det)
	}
	return out, nil
}

// parseTimestamp accepts RFC 3339 and the naive variant without an offset;
// naive times are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}
