package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvelez/jobdeck/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes: missing entities
// to 404, live-run and lost-race conflicts to 409, rejected payloads and
// settings to 422, everything unclassified to 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		malformed  *model.MalformedPayloadError
		transition *model.IllegalTransitionError
	)

	switch {
	case errors.Is(err, model.ErrPostingNotFound),
		errors.Is(err, model.ErrRunNotFound),
		errors.Is(err, model.ErrDraftNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrAlreadyStreaming),
		errors.Is(err, model.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// postingView is the wire shape of a posting. RawRef is omitted: the raw
// payload is an internal audit trail, not API surface.
type postingView struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url,omitempty"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	Stage        string    `json:"stage"`
	VisaSponsor  *bool     `json:"visaSponsor,omitempty"`
}

func toPostingView(p model.Posting) postingView {
	return postingView{
		ID:           p.ID,
		Source:       string(p.Source),
		Title:        p.Title,
		Company:      p.Company,
		Location:     p.Location,
		Description:  p.Description,
		URL:          p.URL,
		DiscoveredAt: p.DiscoveredAt,
		Stage:        string(p.Stage),
		VisaSponsor:  p.VisaSponsor,
	}
}

type runView struct {
	RunID      string     `json:"runId"`
	PostingID  string     `json:"postingId"`
	Status     string     `json:"status"`
	Generation uint64     `json:"generation"`
	Transcript string     `json:"transcript"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
}

func toRunView(run model.GenerationRun) runView {
	return runView{
		RunID:      run.ID,
		PostingID:  run.PostingID,
		Status:     string(run.Status),
		Generation: run.Generation,
		Transcript: run.Transcript(),
		StartedAt:  run.StartedAt,
		EndedAt:    run.EndedAt,
	}
}
