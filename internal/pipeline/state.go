// SPDX-License-Identifier: MIT

package pipeline

// State is the lifecycle phase of the pipeline. Transitions happen only
// under the orchestrator mutex.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Status is the externally visible snapshot of the pipeline.
type Status struct {
	Active         bool
	VideoPathQueue int
	DetectionQueue int
	StreamURL      string
}
