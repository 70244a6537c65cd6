package ingest

import (
	"strings"

	"github.com/mvelez/jobdeck/internal/model"
)

// DedupKey computes the canonical external identity for a posting.
//
// The external URL wins when present, so the same posting reached through
// two different sources resolves to one record. Without a URL the key falls
// back to the source-scoped external id.
func DedupKey(externalURL string, source model.SourceID, externalID string) string {
	if u := normalizeURL(externalURL); u != "" {
		return u
	}
	return string(source) + ":" + externalID
}

// normalizeURL lowercases the URL and strips the fragment and any trailing
// slash. Returns "" for blank input.
func normalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return ""
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}
