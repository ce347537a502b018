// SPDX-License-Identifier: MIT

package domain

import "time"

// EventDefinition is one entry of the user-supplied event catalog.
type EventDefinition struct {
	Code        string `json:"event_code"`
	Description string `json:"event_description"`
	Guidelines  string `json:"detection_guidelines"`
}

// Detection is the in-memory message produced by the detector adapter and
// consumed exactly once by the collection worker. Zero values are legal;
// the collector applies the documented defaults.
type Detection struct {
	Timestamp   time.Time // may be zero or naive; normalized by the collector
	Code        string
	Description string
	Explanation string
	VideoPath   string // absolute path of the originating clip
}

// Event is a persisted detection. ID is assigned by the persistence callback;
// it stays zero when persistence failed (the event is still broadcast).
type Event struct {
	ID          int64     `json:"event_id"`
	Timestamp   time.Time `json:"event_timestamp"`
	Code        string    `json:"event_code"`
	Description string    `json:"event_description"`
	VideoPath   string    `json:"event_video_url"`
	Explanation string    `json:"event_detection_explanation_by_ai"`
}

// Detection defaults applied by the collection worker.
const (
	DefaultEventCode        = "unknown-code"
	DefaultEventDescription = "Unknown event description"
)

// Normalize returns a copy of d with the documented defaults applied and the
// timestamp coerced to timezone-aware UTC. A zero timestamp is replaced with
// now; a naive one is reinterpreted as UTC.
func (d Detection) Normalize(now time.Time) Detection {
	if d.Timestamp.IsZero() {
		d.Timestamp = now.UTC()
	} else {
		d.Timestamp = d.Timestamp.UTC()
	}
	if d.Code == "" {
		d.Code = DefaultEventCode
	}
	if d.Description == "" {
		d.Description = DefaultEventDescription
	}
	return d
}
