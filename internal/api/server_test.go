package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mvelez/jobdeck/internal/generate"
	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/pipeline"
	"github.com/mvelez/jobdeck/internal/runner"
	"github.com/mvelez/jobdeck/internal/settings"
	"github.com/mvelez/jobdeck/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memSettings is an in-memory settings.Store.
type memSettings struct {
	current settings.AppSettings
}

func (m *memSettings) Get(context.Context) (settings.AppSettings, error) {
	return m.current, nil
}

func (m *memSettings) Update(_ context.Context, s settings.AppSettings) (settings.AppSettings, error) {
	m.current = s
	return s, nil
}

// fixedInferrer returns a canned draft for any pasted text.
type fixedInferrer struct {
	draft generate.InferredDraft
	err   error
}

func (f fixedInferrer) InferDraft(context.Context, string) (generate.InferredDraft, error) {
	return f.draft, f.err
}

type testEnv struct {
	server   *Server
	store    *store.MemoryStore
	settings *memSettings
	drafts   *ingest.DraftRegistry
}

func newTestEnv(t *testing.T, inferrer generate.DraftInferrer) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := &memSettings{}
	drafts := ingest.NewDraftRegistry(time.Minute)
	logger := discardLogger()
	normalizer := ingest.NewNormalizer(st, nil, drafts, logger)
	engine := pipeline.NewEngine(st, logger)
	controller := runner.NewController(generate.NewNopGenerator(), st, st, logger)

	srv := NewServer(st, engine, normalizer, drafts, inferrer, controller, cfg, 8, logger)
	return &testEnv{server: srv, store: st, settings: cfg, drafts: drafts}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Routes().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedPosting(t *testing.T, id string, stage model.Stage) {
	t.Helper()
	p := model.Posting{
		ID:           id,
		Source:       model.SourceWebhook,
		DedupKey:     "k-" + id,
		Title:        "Engineer",
		Company:      "Acme",
		DiscoveredAt: time.Now().UTC(),
		Stage:        stage,
	}
	if err := e.store.Put(context.Background(), p); err != nil {
		t.Fatalf("seeding posting: %v", err)
	}
}

func TestListPostings_StageFilter(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{})
	env.seedPosting(t, "a", model.StageDiscovered)
	env.seedPosting(t, "b", model.StageReady)

	rec := env.do(t, http.MethodGet, "/api/postings?stage=ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got []postingView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected listing: %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/postings", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 postings without filter, got %d", len(got))
	}

	rec = env.do(t, http.MethodGet, "/api/postings?stage=wishful", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown stage should be 400, got %d", rec.Code)
	}
}

func TestMoveStage(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{})
	env.seedPosting(t, "p1", model.StageDiscovered)

	rec := env.do(t, http.MethodPost, "/api/postings/p1/stage", `{"stage":"ready"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got postingView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stage != "ready" {
		t.Fatalf("stage = %s", got.Stage)
	}

	// Illegal edge maps to conflict.
	rec = env.do(t, http.MethodPost, "/api/postings/p1/stage", `{"stage":"ready"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("illegal transition should be 409, got %d", rec.Code)
	}

	// Demotion without intent is rejected, with intent it succeeds.
	rec = env.do(t, http.MethodPost, "/api/postings/p1/stage", `{"stage":"discovered"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("demotion without intent should be 409, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/postings/p1/stage", `{"stage":"discovered","demote":true}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("demotion with intent should succeed, got %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/api/postings/ghost/stage", `{"stage":"ready"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown posting should be 404, got %d", rec.Code)
	}
}

func TestWebhook_SecretGating(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{})
	payload := `{"external_id":"e1","title":"Engineer","company":"Acme","url":"https://example.com/jobs/1"}`

	// No secret configured: the source is disabled.
	rec := env.do(t, http.MethodPost, "/api/webhooks/postings", payload, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled webhook should be 403, got %d", rec.Code)
	}

	env.settings.current.WebhookSecret = "hunter2"

	rec = env.do(t, http.MethodPost, "/api/webhooks/postings", payload, map[string]string{"X-Webhook-Secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad secret should be 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/webhooks/postings", payload, map[string]string{"X-Webhook-Secret": "hunter2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid delivery should be 201, got %d: %s", rec.Code, rec.Body)
	}

	// Re-delivery of the same posting dedups to 200.
	rec = env.do(t, http.MethodPost, "/api/webhooks/postings", payload, map[string]string{"X-Webhook-Secret": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate delivery should be 200, got %d", rec.Code)
	}

	// Malformed payload maps to 422.
	rec = env.do(t, http.MethodPost, "/api/webhooks/postings", `{"company":"Acme"}`, map[string]string{"X-Webhook-Secret": "hunter2"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed payload should be 422, got %d", rec.Code)
	}
}

func TestDraftFlow(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{draft: generate.InferredDraft{
		Title:   "Platform Engineer",
		Company: "Initech",
		URL:     "https://initech.example.com/jobs/42",
	}})

	rec := env.do(t, http.MethodPost, "/api/postings/draft", `{"pasted":"We are hiring a platform engineer..."}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var d draftView
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID == "" || d.Company != "Initech" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	// Nothing persisted yet.
	postings, _ := env.store.ListByStage(context.Background(), model.StageAll)
	if len(postings) != 0 {
		t.Fatalf("draft leaked into the store: %d postings", len(postings))
	}

	rec = env.do(t, http.MethodPost, "/api/postings/draft/"+d.ID+"/confirm", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm should be 201, got %d: %s", rec.Code, rec.Body)
	}
	var p postingView
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Source != "manual" || p.Stage != "discovered" {
		t.Fatalf("unexpected posting: %+v", p)
	}

	// Confirming twice: the draft is gone.
	rec = env.do(t, http.MethodPost, "/api/postings/draft/"+d.ID+"/confirm", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second confirm should be 404, got %d", rec.Code)
	}
}

func TestUpdateSettings_NormalizesAndRejects(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{})

	rec := env.do(t, http.MethodPut, "/api/settings", `{"maxProjects":99,"adzunaAppId":"id"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got settings.AppSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MaxProjects != 8 {
		t.Fatalf("maxProjects should clamp to the ceiling, got %d", got.MaxProjects)
	}

	// A rejected update leaves the stored record untouched.
	before := env.settings.current
	rec = env.do(t, http.MethodPut, "/api/settings",
		`{"lockedProjectIds":["x"],"aiSelectableProjectIds":["x"]}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overlapping sets should be 422, got %d", rec.Code)
	}
	if env.settings.current.MaxProjects != before.MaxProjects {
		t.Fatal("rejected update mutated stored settings")
	}
}

func TestRunStatus_NotFound(t *testing.T) {
	env := newTestEnv(t, fixedInferrer{})
	env.seedPosting(t, "p1", model.StageReady)

	rec := env.do(t, http.MethodGet, "/api/postings/p1/run", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no run should be 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/postings/p1/run/stop", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stop without a run should be 404, got %d", rec.Code)
	}
}
