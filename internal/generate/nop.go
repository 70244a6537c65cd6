package generate

import (
	"context"
	"fmt"

	"github.com/mvelez/jobdeck/internal/model"
)

// NopGenerator is used when ai.enabled is false. It emits nothing and
// completes immediately, so runs still terminate cleanly without LLM calls.
type NopGenerator struct{}

func NewNopGenerator() *NopGenerator {
	return &NopGenerator{}
}

func (n *NopGenerator) Generate(_ context.Context, _ model.Posting, _ func(string)) (string, error) {
	return "", nil
}

// DisabledInferrer rejects draft inference when ai.enabled is false. Unlike
// generation runs, manual import cannot degrade gracefully: there is nothing
// to review without inferred fields.
type DisabledInferrer struct{}

func (DisabledInferrer) InferDraft(context.Context, string) (InferredDraft, error) {
	return InferredDraft{}, fmt.Errorf("draft inference requires ai.enabled: true in config")
}
