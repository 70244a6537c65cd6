package generate

import (
	"context"

	"github.com/mvelez/jobdeck/internal/model"
)

// Generator begins a generation for a posting and delivers text chunks
// through onDelta as they arrive. It returns the full accumulated text.
// onDelta may block (downstream backpressure); the generator must not
// buffer past it. Used by the run controller; not exported elsewhere.
type Generator interface {
	Generate(ctx context.Context, p model.Posting, onDelta func(delta string)) (string, error)
}

// InferredDraft is the structured result of draft inference over pasted
// job-ad text.
type InferredDraft struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// DraftInferrer extracts posting fields from pasted free text.
type DraftInferrer interface {
	InferDraft(ctx context.Context, pasted string) (InferredDraft, error)
}
