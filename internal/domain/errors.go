// SPDX-License-Identifier: MIT

// Package domain holds the shared types and the error taxonomy of the
// detection pipeline. Workers and the chunker deal only in these errors;
// HTTP status mapping happens at the API boundary.
package domain

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code exposed to API clients.
type Code string

const (
	CodeServiceAlreadyRunning Code = "SERVICE_ALREADY_RUNNING"
	CodeServiceNotRunning     Code = "SERVICE_NOT_RUNNING"
	CodeInvalidConfig         Code = "INVALID_CONFIG"
	CodeDatabaseNotConfigured Code = "DATABASE_NOT_CONFIGURED"
	CodeEventNotFound         Code = "EVENT_NOT_FOUND"
	CodeInvalidVideoPath      Code = "INVALID_VIDEO_PATH"
	CodeVideoProcessingFailed Code = "VIDEO_PROCESSING_FAILED"
	CodeFrameExtractionFailed Code = "FRAME_EXTRACTION_FAILED"
	CodeAIDetectionFailed     Code = "AI_DETECTION_FAILED"
)

// Sentinel errors for errors.Is checks at the boundary.
var (
	ErrServiceAlreadyRunning = &Error{Code: CodeServiceAlreadyRunning, Message: "service is already running"}
	ErrServiceNotRunning     = &Error{Code: CodeServiceNotRunning, Message: "service is not running"}
	ErrDatabaseNotConfigured = &Error{Code: CodeDatabaseNotConfigured, Message: "DATABASE_URL not configured"}
	ErrEventNotFound         = &Error{Code: CodeEventNotFound, Message: "event not found"}
	ErrInvalidVideoPath      = &Error{Code: CodeInvalidVideoPath, Message: "video file not found"}
)

// Error is a domain error carrying a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error // optional nested cause
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by code, so wrapped instances compare equal
// to the sentinels above.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// InvalidConfig returns an INVALID_CONFIG error with the given detail.
func InvalidConfig(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf(format, args...)}
}

// DetectionFailed wraps a detector adapter failure.
func DetectionFailed(err error) *Error {
	return &Error{Code: CodeAIDetectionFailed, Message: "event detection failed", Err: err}
}

// FrameExtractionFailed wraps a stream decode failure.
func FrameExtractionFailed(err error) *Error {
	return &Error{Code: CodeFrameExtractionFailed, Message: "frame extraction failed", Err: err}
}

// ProcessingFailed wraps a clip processing failure.
func ProcessingFailed(err error) *Error {
	return &Error{Code: CodeVideoProcessingFailed, Message: "video processing failed", Err: err}
}

// CodeOf returns the domain code carried by err, or "" if err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
