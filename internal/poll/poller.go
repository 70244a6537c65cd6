// Package poll owns the cron-driven ingestion loop: it re-derives the
// enabled source set from the live settings record on every cycle and
// feeds raw payloads through the normalizer.
package poll

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/settings"
	"github.com/mvelez/jobdeck/internal/source"
	"github.com/mvelez/jobdeck/internal/sponsor"
)

// Poller runs one ingestion cycle across all pollable sources. Manual and
// webhook sources are push-driven and not polled here.
type Poller struct {
	settings   settings.Store
	normalizer *ingest.Normalizer
	adzuna     *AdzunaFetcher
	visa       *VisaFeedFetcher
	registry   *sponsor.Registry
	retrier    *Retrier
	queries    []string
	maxPages   int
	logger     *slog.Logger
}

func NewPoller(
	settingsStore settings.Store,
	normalizer *ingest.Normalizer,
	adzuna *AdzunaFetcher,
	visa *VisaFeedFetcher,
	registry *sponsor.Registry,
	retrier *Retrier,
	queries []string,
	maxPages int,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		settings:   settingsStore,
		normalizer: normalizer,
		adzuna:     adzuna,
		visa:       visa,
		registry:   registry,
		retrier:    retrier,
		queries:    queries,
		maxPages:   maxPages,
		logger:     logger,
	}
}

// RunOnce executes one poll cycle. The enabled source set is derived from
// the settings record loaded at the top of the cycle; a source whose
// credentials were cleared since the last cycle is simply skipped.
func (p *Poller) RunOnce(ctx context.Context) {
	s, err := p.settings.Get(ctx)
	if err != nil {
		p.logger.Error("loading settings for poll cycle", "error", err)
		return
	}
	enabled := source.Enabled(s)

	if enabled[model.SourceAdzuna] {
		p.pollAdzuna(ctx, s)
	} else {
		p.logger.Debug("adzuna disabled, skipping")
	}

	if enabled[model.SourceVisaFeed] {
		p.pollVisaFeed(ctx, s)
	} else {
		p.logger.Debug("visa feed disabled, skipping")
	}
}

func (p *Poller) pollAdzuna(ctx context.Context, s settings.AppSettings) {
	for _, query := range p.queries {
		var fetched, created int
		for page := 1; page <= p.maxPages; page++ {
			var results [][]byte
			err := p.retrier.Do(ctx, func(ctx context.Context) error {
				raw, err := p.adzuna.FetchPage(ctx, s.AdzunaAppID, s.AdzunaAppKey, query, page)
				if err != nil {
					return err
				}
				results = results[:0]
				for _, r := range raw {
					results = append(results, []byte(r))
				}
				return nil
			})
			if err != nil {
				p.logger.Error("adzuna poll failed", "query", query, "page", page, "error", err)
				break
			}
			if len(results) == 0 {
				break
			}

			fetched += len(results)
			created += p.ingestAll(ctx, model.SourceAdzuna, results)

			if len(results) < p.adzuna.PageSize() {
				break // last page
			}
		}
		p.logger.Info("polled adzuna", "query", query, "fetched", fetched, "new", created)
	}
}

func (p *Poller) pollVisaFeed(ctx context.Context, s settings.AppSettings) {
	var feed VisaFeed
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		feed, err = p.visa.Fetch(ctx, s.VisaFeedURL)
		return err
	})
	if err != nil {
		p.logger.Error("visa feed poll failed", "error", err)
		return
	}

	if len(feed.Sponsors) > 0 {
		p.registry.Replace(feed.Sponsors)
	}

	raw := make([][]byte, 0, len(feed.Postings))
	for _, r := range feed.Postings {
		raw = append(raw, []byte(r))
	}
	created := p.ingestAll(ctx, model.SourceVisaFeed, raw)

	p.logger.Info("polled visa feed",
		"sponsors", len(feed.Sponsors),
		"postings", len(feed.Postings),
		"new", created,
	)
}

// ingestAll normalizes each payload, counting creations. Malformed
// payloads are logged and discarded, never retried.
func (p *Poller) ingestAll(ctx context.Context, src model.SourceID, payloads [][]byte) int {
	var created int
	for _, raw := range payloads {
		_, isNew, err := p.normalizer.Normalize(ctx, src, raw)
		if err != nil {
			var malformed *model.MalformedPayloadError
			if errors.As(err, &malformed) {
				p.logger.Warn("discarding malformed payload", "source", src, "error", err)
				continue
			}
			p.logger.Error("ingesting payload", "source", src, "error", err)
			continue
		}
		if isNew {
			created++
		}
	}
	return created
}
