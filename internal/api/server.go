// Package api exposes the pipeline over HTTP: posting queries, manual
// draft review, webhook ingestion, settings updates, and generation run
// control with server-sent event streaming.
package api

import (
	"log/slog"
	"net/http"

	"github.com/mvelez/jobdeck/internal/generate"
	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/pipeline"
	"github.com/mvelez/jobdeck/internal/runner"
	"github.com/mvelez/jobdeck/internal/settings"
)

// Server bundles the handlers and their dependencies.
type Server struct {
	store       model.PostingStore
	engine      *pipeline.Engine
	normalizer  *ingest.Normalizer
	drafts      *ingest.DraftRegistry
	inferrer    generate.DraftInferrer
	runs        *runner.Controller
	settings    settings.Store
	maxProjects int // ceiling for the settings MaxProjects clamp
	logger      *slog.Logger
}

func NewServer(
	store model.PostingStore,
	engine *pipeline.Engine,
	normalizer *ingest.Normalizer,
	drafts *ingest.DraftRegistry,
	inferrer generate.DraftInferrer,
	runs *runner.Controller,
	settingsStore settings.Store,
	maxProjects int,
	logger *slog.Logger,
) *Server {
	return &Server{
		store:       store,
		engine:      engine,
		normalizer:  normalizer,
		drafts:      drafts,
		inferrer:    inferrer,
		runs:        runs,
		settings:    settingsStore,
		maxProjects: maxProjects,
		logger:      logger,
	}
}

// Routes builds the request mux. Method-scoped patterns keep dispatch in
// the mux instead of inside handlers.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/postings", s.handleListPostings)
	mux.HandleFunc("POST /api/postings/{id}/stage", s.handleMoveStage)

	mux.HandleFunc("POST /api/postings/draft", s.handleCreateDraft)
	mux.HandleFunc("POST /api/postings/draft/{id}/confirm", s.handleConfirmDraft)

	mux.HandleFunc("GET /api/postings/{id}/run", s.handleRunStatus)
	mux.HandleFunc("POST /api/postings/{id}/run", s.handleStartRun)
	mux.HandleFunc("POST /api/postings/{id}/run/stop", s.handleStopRun)
	mux.HandleFunc("POST /api/postings/{id}/run/regenerate", s.handleRegenerateRun)

	mux.HandleFunc("POST /api/webhooks/postings", s.handleWebhook)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/health", s.handleHealth)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
