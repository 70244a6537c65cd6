// Package source decides which ingestion sources are active.
//
// The enabled set is a pure function of the current settings record and is
// re-derived on every use; it is never cached as process state.
package source

import (
	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/settings"
)

// requiredFields maps each source to the credential fields it declares as
// required. A source is enabled iff every declared field is non-empty.
// The manual source declares nothing and is always enabled.
var requiredFields = map[model.SourceID][]func(settings.AppSettings) string{
	model.SourceAdzuna: {
		func(s settings.AppSettings) string { return s.AdzunaAppID },
		func(s settings.AppSettings) string { return s.AdzunaAppKey },
	},
	model.SourceManual: {},
	model.SourceWebhook: {
		func(s settings.AppSettings) string { return s.WebhookSecret },
	},
	model.SourceVisaFeed: {
		func(s settings.AppSettings) string { return s.VisaFeedURL },
	},
}

// Enabled returns the set of sources whose required credentials are all
// present and non-empty in s. Partial credentials never enable a source.
func Enabled(s settings.AppSettings) map[model.SourceID]bool {
	enabled := make(map[model.SourceID]bool, len(requiredFields))
	for id, fields := range requiredFields {
		ok := true
		for _, field := range fields {
			if field(s) == "" {
				ok = false
				break
			}
		}
		if ok {
			enabled[id] = true
		}
	}
	return enabled
}

// IsEnabled reports whether a single source is enabled under s.
func IsEnabled(s settings.AppSettings, id model.SourceID) bool {
	return Enabled(s)[id]
}
