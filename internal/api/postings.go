package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/model"
)

func (s *Server) handleListPostings(w http.ResponseWriter, r *http.Request) {
	stage, err := model.ParseStageFilter(r.URL.Query().Get("stage"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	postings, err := s.store.ListByStage(r.Context(), stage)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]postingView, 0, len(postings))
	for _, p := range postings {
		views = append(views, toPostingView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

type moveStageRequest struct {
	Stage  string `json:"stage"`
	Demote bool   `json:"demote"`
}

// handleMoveStage applies one stage transition. Demotion edges require the
// demote flag; a request without it never walks the pipeline backwards.
func (s *Server) handleMoveStage(w http.ResponseWriter, r *http.Request) {
	var req moveStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	next, err := model.ParseStage(req.Stage)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	p, err := s.engine.Move(r.Context(), r.PathValue("id"), next, req.Demote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostingView(p))
}

type createDraftRequest struct {
	Pasted string `json:"pasted"`
}

type draftView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// handleCreateDraft infers posting fields from pasted text and parks the
// result in the draft registry. Nothing is persisted until the draft is
// confirmed.
func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Pasted == "" {
		badRequest(w, "pasted text is required")
		return
	}

	inferred, err := s.inferrer.InferDraft(r.Context(), req.Pasted)
	if err != nil {
		writeError(w, err)
		return
	}

	d := s.drafts.Add(ingest.Draft{
		Title:       inferred.Title,
		Company:     inferred.Company,
		Location:    inferred.Location,
		Description: inferred.Description,
		URL:         inferred.URL,
		Raw:         req.Pasted,
	})

	writeJSON(w, http.StatusOK, draftView{
		ID:          d.ID,
		Title:       d.Title,
		Company:     d.Company,
		Location:    d.Location,
		URL:         d.URL,
		Description: d.Description,
	})
}

func (s *Server) handleConfirmDraft(w http.ResponseWriter, r *http.Request) {
	p, created, err := s.normalizer.ConfirmDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPostingView(p))
}

// handleWebhook ingests one inbound posting delivery. The source must be
// enabled (a webhook secret configured) and the request must present it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg.WebhookSecret == "" {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "webhook source is disabled"})
		return
	}
	if r.Header.Get("X-Webhook-Secret") != cfg.WebhookSecret {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid webhook secret"})
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "reading request body")
		return
	}

	p, created, err := s.normalizer.Normalize(r.Context(), model.SourceWebhook, raw)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPostingView(p))
}
