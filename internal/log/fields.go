// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldSubscriberID = "subscriber_id"
	FieldEventID      = "event_id"
	FieldEventCode    = "event_code"

	// Process / pipeline fields
	FieldComponent = "component"
	FieldState     = "state"
	FieldQueue     = "queue"

	// Media / stream fields
	FieldStreamURL  = "stream_url"
	FieldFPS        = "fps"
	FieldResolution = "resolution"
	FieldFrames     = "frames"
	FieldModel      = "model"

	// Path fields
	FieldPath      = "path"
	FieldFinalPath = "final_path"
)
