package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mvelez/jobdeck/internal/model"
)

// VisaFeed mirrors the sponsor feed document: the current register
// snapshot plus the sponsors' open postings. Postings are kept raw for the
// normalizer.
type VisaFeed struct {
	Sponsors []string          `json:"sponsors"`
	Postings []json.RawMessage `json:"postings"`
}

// VisaFeedFetcher pulls the licensed-sponsor feed. The feed URL comes from
// the live settings record.
type VisaFeedFetcher struct {
	client *http.Client
}

func NewVisaFeedFetcher(client *http.Client) *VisaFeedFetcher {
	return &VisaFeedFetcher{client: client}
}

func (f *VisaFeedFetcher) Fetch(ctx context.Context, feedURL string) (VisaFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return VisaFeed{}, fmt.Errorf("visa feed fetch: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return VisaFeed{}, fmt.Errorf("visa feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VisaFeed{}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("visa feed fetch"),
		}
	}

	var feed VisaFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return VisaFeed{}, fmt.Errorf("visa feed decode: %w", err)
	}
	return feed, nil
}
