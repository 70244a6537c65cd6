package model

import (
	"context"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunStreaming RunStatus = "streaming"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Terminal returns true when no further chunks can be accepted for the run.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunStopped || s == RunFailed
}

// GenerationRun is one generation/streaming session bound to a single
// posting. Chunks is append-only while the run is streaming. Generation is
// the counter value captured at start; output tagged with an older value is
// discarded by the controller.
type GenerationRun struct {
	ID         string
	PostingID  string
	Status     RunStatus
	Generation uint64
	Chunks     []string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Transcript returns the emitted chunks joined in order.
func (r *GenerationRun) Transcript() string {
	return strings.Join(r.Chunks, "")
}

// RunStore persists generation runs. Only the latest run per posting is
// retrievable; superseded runs are overwritten.
type RunStore interface {
	SaveRun(ctx context.Context, run GenerationRun) error
	GetRun(ctx context.Context, postingID string) (GenerationRun, error)
}
