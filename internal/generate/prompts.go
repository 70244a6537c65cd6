package generate

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/application.md
var applicationPromptRaw string

//go:embed prompts/draft_inference.md
var draftInferencePromptRaw string

// ApplicationTemplate is the parsed prompt for streamed application
// material. Parsed once at package init; reused on every Generate call.
var ApplicationTemplate = template.Must(template.New("application").Parse(applicationPromptRaw))

// DraftInferenceTemplate is the parsed prompt for extracting posting fields
// from pasted job-ad text.
var DraftInferenceTemplate = template.Must(template.New("draft_inference").Parse(draftInferencePromptRaw))
