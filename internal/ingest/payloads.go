package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/mvelez/jobdeck/internal/model"
)

// candidate holds the fields extracted from a raw source payload before
// validation and dedup.
type candidate struct {
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Sponsor     *bool // set only by the visa feed
}

// adzunaResult mirrors a single listing in an Adzuna search response.
type adzunaResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	RedirectURL string `json:"redirect_url"`
}

// webhookPayload is the shape third parties deliver to the inbound webhook.
type webhookPayload struct {
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// visaFeedEntry is one posting in the licensed-sponsor feed. Every entry
// comes from a licensed sponsor, so the sponsor flag is implied true.
type visaFeedEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Sponsor  string `json:"sponsor"` // company name as registered
	Location string `json:"location"`
	URL      string `json:"url"`
	Route    string `json:"route"` // visa route, kept in the description
}

// decode extracts candidate fields from raw according to the source's wire
// format. Undecodable JSON is a malformed payload, not an internal error.
func decode(source model.SourceID, raw []byte) (candidate, error) {
	switch source {
	case model.SourceAdzuna:
		var r adzunaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return candidate{}, &model.MalformedPayloadError{Source: source, Field: "body"}
		}
		return candidate{
			ExternalID:  r.ID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			URL:         r.RedirectURL,
		}, nil

	case model.SourceWebhook:
		var p webhookPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return candidate{}, &model.MalformedPayloadError{Source: source, Field: "body"}
		}
		return candidate{
			ExternalID:  p.ExternalID,
			Title:       p.Title,
			Company:     p.Company,
			Location:    p.Location,
			Description: p.Description,
			URL:         p.URL,
		}, nil

	case model.SourceVisaFeed:
		var e visaFeedEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return candidate{}, &model.MalformedPayloadError{Source: source, Field: "body"}
		}
		sponsor := true
		desc := ""
		if e.Route != "" {
			desc = "Visa route: " + e.Route
		}
		return candidate{
			ExternalID:  e.ID,
			Title:       e.Title,
			Company:     e.Sponsor,
			Location:    e.Location,
			URL:         e.URL,
			Description: desc,
			Sponsor:     &sponsor,
		}, nil

	default:
		return candidate{}, fmt.Errorf("no decoder for source %q", source)
	}
}
