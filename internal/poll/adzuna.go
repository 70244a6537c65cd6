package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mvelez/jobdeck/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
)

// AdzunaFetcher pulls listings from the Adzuna search API. Credentials are
// passed per call: they come from the live settings record, which can
// change between poll cycles.
type AdzunaFetcher struct {
	baseURL string
	country string
	client  *http.Client
}

func NewAdzunaFetcher(country string, client *http.Client) *AdzunaFetcher {
	return &AdzunaFetcher{
		baseURL: adzunaBaseURL,
		country: country,
		client:  client,
	}
}

// adzunaPage mirrors the top-level Adzuna search response. Results are kept
// raw: decoding into canonical fields is the normalizer's job.
type adzunaPage struct {
	Results []json.RawMessage `json:"results"`
}

// FetchPage retrieves one result page for the query. An empty or short page
// signals the last one.
func (f *AdzunaFetcher) FetchPage(ctx context.Context, appID, appKey, query string, page int) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", f.baseURL, f.country, page)

	params := url.Values{}
	params.Set("app_id", appID)
	params.Set("app_key", appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", query)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("adzuna fetch for %q: %w", query, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna fetch for %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("adzuna fetch for %q", query),
		}
	}

	var pageResp adzunaPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return nil, fmt.Errorf("adzuna fetch for %q: %w", query, err)
	}
	return pageResp.Results, nil
}

// PageSize returns the configured results-per-page, used by the poller to
// detect the last page.
func (f *AdzunaFetcher) PageSize() int { return adzunaPageSize }
