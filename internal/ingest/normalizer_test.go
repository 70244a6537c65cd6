package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedSponsors answers every lookup with a canned result.
type fixedSponsors struct {
	licensed bool
	loaded   bool
}

func (f fixedSponsors) Lookup(string) (bool, bool) { return f.licensed, f.loaded }

func newTestNormalizer(sponsors SponsorLookup) (*Normalizer, *store.MemoryStore, *DraftRegistry) {
	st := store.NewMemoryStore()
	drafts := NewDraftRegistry(time.Minute)
	return NewNormalizer(st, sponsors, drafts, discardLogger()), st, drafts
}

const webhookJob = `{
	"external_id": "ext-1",
	"title": "Backend Engineer",
	"company": "Acme Ltd",
	"location": "London",
	"url": "https://example.com/jobs/1",
	"description": "Go services"
}`

func TestNormalize_CreatesPostingAtDiscovered(t *testing.T) {
	n, _, _ := newTestNormalizer(nil)

	p, created, err := n.Normalize(context.Background(), model.SourceWebhook, []byte(webhookJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a new posting")
	}
	if p.Stage != model.StageDiscovered {
		t.Fatalf("new posting should start at discovered, got %s", p.Stage)
	}
	if p.Company != "Acme Ltd" || p.Title != "Backend Engineer" {
		t.Fatalf("unexpected fields: %+v", p)
	}
	if p.VisaSponsor != nil {
		t.Fatal("sponsor flag should be nil without a register")
	}
}

func TestNormalize_ReingestionIsIdempotent(t *testing.T) {
	n, st, _ := newTestNormalizer(nil)
	ctx := context.Background()

	first, _, err := n.Normalize(ctx, model.SourceWebhook, []byte(webhookJob))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Move the posting forward, then re-ingest the same URL from another
	// source. The existing record must come back with its stage untouched.
	if ok, err := st.CompareAndSetStage(ctx, first.ID, model.StageDiscovered, model.StageReady); err != nil || !ok {
		t.Fatalf("setup stage move failed: ok=%v err=%v", ok, err)
	}

	adzunaSameURL := `{
		"id": "999",
		"title": "Backend Engineer",
		"company": {"display_name": "Acme Ltd"},
		"location": {"display_name": "London"},
		"redirect_url": "https://Example.com/jobs/1/"
	}`
	p, created, err := n.Normalize(ctx, model.SourceAdzuna, []byte(adzunaSameURL))
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if created {
		t.Fatal("re-ingestion must not create a second posting")
	}
	if p.ID != first.ID {
		t.Fatalf("expected existing posting %s, got %s", first.ID, p.ID)
	}
	if p.Stage != model.StageReady {
		t.Fatalf("stage must be untouched by re-ingestion, got %s", p.Stage)
	}
}

func TestNormalize_MalformedPayloads(t *testing.T) {
	n, _, _ := newTestNormalizer(nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"bad json", `{not json`, "body"},
		{"missing title", `{"company":"Acme","url":"https://x.com/1"}`, "title"},
		{"missing company", `{"title":"Engineer","url":"https://x.com/1"}`, "company"},
		{"no url or id", `{"title":"Engineer","company":"Acme"}`, "url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := n.Normalize(ctx, model.SourceWebhook, []byte(tc.raw))
			var malformed *model.MalformedPayloadError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedPayloadError, got %v", err)
			}
			if malformed.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, malformed.Field)
			}
		})
	}
}

func TestNormalize_VisaFeedImpliesSponsor(t *testing.T) {
	n, _, _ := newTestNormalizer(nil)

	raw := `{"id":"v1","title":"Nurse","sponsor":"Care Co","location":"Leeds","url":"https://care.example.com/1","route":"Skilled Worker"}`
	p, _, err := n.Normalize(context.Background(), model.SourceVisaFeed, []byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VisaSponsor == nil || !*p.VisaSponsor {
		t.Fatalf("visa feed postings should carry sponsor=true, got %v", p.VisaSponsor)
	}
}

func TestNormalize_SponsorCrossReference(t *testing.T) {
	n, _, _ := newTestNormalizer(fixedSponsors{licensed: true, loaded: true})

	p, _, err := n.Normalize(context.Background(), model.SourceWebhook, []byte(webhookJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VisaSponsor == nil || !*p.VisaSponsor {
		t.Fatalf("expected sponsor=true from register lookup, got %v", p.VisaSponsor)
	}

	// Before a register snapshot is loaded the flag stays nil.
	n2, _, _ := newTestNormalizer(fixedSponsors{loaded: false})
	p2, _, err := n2.Normalize(context.Background(), model.SourceWebhook, []byte(webhookJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.VisaSponsor != nil {
		t.Fatalf("flag should be nil before the register loads, got %v", p2.VisaSponsor)
	}
}

func TestConfirmDraft_PersistsOnlyOnConfirm(t *testing.T) {
	n, st, drafts := newTestNormalizer(nil)
	ctx := context.Background()

	d := drafts.Add(Draft{
		Title:   "Platform Engineer",
		Company: "Initech",
		URL:     "https://initech.example.com/jobs/42",
		Raw:     "pasted job ad text",
	})

	// Nothing reaches the store while the draft sits unconfirmed.
	all, err := st.ListByStage(ctx, model.StageAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("unconfirmed draft must not be persisted, found %d postings", len(all))
	}

	p, created, err := n.ConfirmDraft(ctx, d.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !created || p.Source != model.SourceManual || p.Stage != model.StageDiscovered {
		t.Fatalf("unexpected posting: created=%v %+v", created, p)
	}

	// The draft is gone once confirmed.
	if _, err := drafts.Get(d.ID); !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound after confirm, got %v", err)
	}
}

func TestConfirmDraft_UnknownDraft(t *testing.T) {
	n, _, _ := newTestNormalizer(nil)
	_, _, err := n.ConfirmDraft(context.Background(), "no-such-draft")
	if !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}
}

func TestDraftRegistry_TTLExpiry(t *testing.T) {
	drafts := NewDraftRegistry(10 * time.Millisecond)
	d := drafts.Add(Draft{Title: "x", Company: "y"})

	time.Sleep(20 * time.Millisecond)

	if _, err := drafts.Get(d.ID); !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("expected expired draft, got %v", err)
	}
}
