package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/runner"
)

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunView(run))
}

// handleStartRun starts a generation run and streams it over SSE. A live
// run for the posting rejects the start with a conflict before any stream
// bytes are written.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	s.streamRun(w, r, s.runs.Start)
}

// handleRegenerateRun supersedes any live run for the posting and streams
// the fresh one. The swap is atomic: no intermediate status is observable.
func (s *Server) handleRegenerateRun(w http.ResponseWriter, r *http.Request) {
	s.streamRun(w, r, s.runs.Regenerate)
}

func (s *Server) handleStopRun(w http.ResponseWriter, r *http.Request) {
	status, err := s.runs.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

type startFunc func(ctx context.Context, postingID string, t runner.Transport) (runner.RunHandle, error)

func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, start startFunc) {
	t, err := newSSETransport(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	postingID := r.PathValue("id")
	handle, err := start(r.Context(), postingID, t)
	if err != nil {
		writeError(w, err)
		return
	}
	t.Begin(handle)

	// Hold the handler open until the run settles or the client goes away.
	// A disconnect stops the run; output already invalidated by the bumped
	// generation counter is discarded, not delivered elsewhere.
	select {
	case <-t.done:
	case <-r.Context().Done():
		// The request context is gone; persistence of the stopped run must
		// not ride on it.
		if _, err := s.runs.Stop(context.Background(), postingID); err != nil && !errors.Is(err, model.ErrRunNotFound) {
			s.logger.Debug("stopping run after client disconnect", "posting", postingID, "error", err)
		}
	}
}
