// SPDX-License-Identifier: MIT

package detector

import (
	"fmt"
	"strings"

	"github.com/argus-video/argus/internal/domain"
)

// buildPrompt assembles the classification instruction for one clip. The
// model is told to answer with a bare JSON array so parsing stays trivial.
func buildPrompt(sceneContext string, events []domain.EventDefinition) string {
	var b strings.Builder

	b.WriteString("You are a video surveillance analyst. Watch the attached video clip carefully.\n")
	if sceneContext != "" {
		fmt.Fprintf(&b, "\nScene context: %s\n", sceneContext)
	}

	b.WriteString("\nDetect occurrences of the following events:\n")
	for _, e := range events {
		fmt.Fprintf(&b, "- event_code: %q\n", e.Code)
		if e.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", e.Description)
		}
		if e.Guidelines != "" {
			fmt.Fprintf(&b, "  detection guidelines: %s\n", e.Guidelines)
		}
	}

	b.WriteString(`
Respond with a JSON array, one element per detected event, and nothing else.
Each element must be an object with exactly these fields:
  "event_code": one of the declared event codes,
  "event_timestamp": the UTC time of the event in RFC 3339 format,
  "event_detection_explanation_by_ai": a short explanation of what was seen.
Respond with [] if none of the declared events occur in the clip.
`)
	return b.String()
}

// stripFences removes a surrounding markdown code fence, which some models
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
