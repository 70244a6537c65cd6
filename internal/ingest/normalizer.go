// Package ingest converts heterogeneous source payloads into canonical
// postings, deduplicating against the store before creation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvelez/jobdeck/internal/model"
)

// SponsorLookup answers whether a company appears on the licensed-sponsor
// register. ok is false until a register snapshot has been loaded.
type SponsorLookup interface {
	Lookup(company string) (licensed bool, ok bool)
}

// Normalizer converts raw source payloads into postings. Re-ingesting a
// payload whose dedup key is already stored returns the existing posting
// with its stage untouched.
type Normalizer struct {
	store    model.PostingStore
	sponsors SponsorLookup // nil disables sponsor cross-referencing
	drafts   *DraftRegistry
	logger   *slog.Logger
}

func NewNormalizer(store model.PostingStore, sponsors SponsorLookup, drafts *DraftRegistry, logger *slog.Logger) *Normalizer {
	return &Normalizer{store: store, sponsors: sponsors, drafts: drafts, logger: logger}
}

// Normalize ingests one raw payload from source. It returns the resulting
// posting and whether it was newly created; a dedup hit returns the
// existing record with created=false and no mutation.
//
// Manual postings do not pass through here — they enter via ConfirmDraft
// after explicit user confirmation.
func (n *Normalizer) Normalize(ctx context.Context, source model.SourceID, raw []byte) (model.Posting, bool, error) {
	if source == model.SourceManual {
		return model.Posting{}, false, fmt.Errorf("manual postings must be confirmed from a draft")
	}

	c, err := decode(source, raw)
	if err != nil {
		return model.Posting{}, false, err
	}
	return n.persist(ctx, source, c, string(raw))
}

// ConfirmDraft promotes a reviewed manual draft into a persisted posting at
// stage discovered and removes the draft. Unconfirmed drafts never reach
// the store.
func (n *Normalizer) ConfirmDraft(ctx context.Context, draftID string) (model.Posting, bool, error) {
	d, err := n.drafts.Get(draftID)
	if err != nil {
		return model.Posting{}, false, err
	}

	c := candidate{
		Title:       d.Title,
		Company:     d.Company,
		Location:    d.Location,
		Description: d.Description,
		URL:         d.URL,
		ExternalID:  d.ID, // draft id doubles as the external id when no URL was inferred
	}
	p, created, err := n.persist(ctx, model.SourceManual, c, d.Raw)
	if err != nil {
		return model.Posting{}, false, err
	}

	n.drafts.Remove(draftID)
	return p, created, nil
}

func (n *Normalizer) persist(ctx context.Context, source model.SourceID, c candidate, rawRef string) (model.Posting, bool, error) {
	if c.Title == "" {
		return model.Posting{}, false, &model.MalformedPayloadError{Source: source, Field: "title"}
	}
	if c.Company == "" {
		return model.Posting{}, false, &model.MalformedPayloadError{Source: source, Field: "company"}
	}
	if c.URL == "" && c.ExternalID == "" {
		return model.Posting{}, false, &model.MalformedPayloadError{Source: source, Field: "url"}
	}

	key := DedupKey(c.URL, source, c.ExternalID)

	existing, err := n.store.GetByDedupKey(ctx, key)
	if err == nil {
		// Idempotent re-ingestion: same external posting, possibly from
		// another source. Stage is left untouched.
		n.logger.Debug("dedup hit, reusing posting",
			"posting", existing.ID,
			"source", source,
			"key", key,
		)
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrPostingNotFound) {
		return model.Posting{}, false, fmt.Errorf("dedup lookup: %w", err)
	}

	p := model.Posting{
		ID:           uuid.NewString(),
		Source:       source,
		DedupKey:     key,
		Title:        c.Title,
		Company:      c.Company,
		Location:     c.Location,
		Description:  c.Description,
		URL:          c.URL,
		RawRef:       rawRef,
		DiscoveredAt: time.Now().UTC(),
		Stage:        model.StageDiscovered,
		VisaSponsor:  n.sponsorFlag(c),
	}

	if err := n.store.Put(ctx, p); err != nil {
		return model.Posting{}, false, fmt.Errorf("persisting posting: %w", err)
	}

	n.logger.Info("posting ingested",
		"posting", p.ID,
		"source", source,
		"company", p.Company,
		"title", p.Title,
	)
	return p, true, nil
}

// sponsorFlag resolves the nullable visa-sponsor flag: the feed's own
// entries carry it, everything else is cross-referenced against the
// register when one is loaded.
func (n *Normalizer) sponsorFlag(c candidate) *bool {
	if c.Sponsor != nil {
		return c.Sponsor
	}
	if n.sponsors == nil {
		return nil
	}
	licensed, ok := n.sponsors.Lookup(c.Company)
	if !ok {
		return nil
	}
	return &licensed
}
