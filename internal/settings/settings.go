// Package settings holds the mutable application settings record:
// per-source credentials and resume/project-selection preferences.
//
// Settings are distinct from process configuration (internal/config): they
// are edited at runtime through the settings-update operation and persisted
// as a single record with all-or-nothing writes.
package settings

import (
	"context"
	"fmt"
)

// AppSettings is the single mutable settings record.
type AppSettings struct {
	AdzunaAppID   string `json:"adzunaAppId"`
	AdzunaAppKey  string `json:"adzunaAppKey"`
	WebhookSecret string `json:"webhookSecret"`
	VisaFeedURL   string `json:"visaFeedUrl"`

	// MaxProjects is the number of resume projects the generator may
	// select, clamped into [0, ceiling] on update.
	MaxProjects int `json:"maxProjects"`

	// LockedProjectIDs are always included in generated material.
	// AISelectableProjectIDs are candidates the generator may pick from.
	// The two sets must be disjoint.
	LockedProjectIDs       []string `json:"lockedProjectIds"`
	AISelectableProjectIDs []string `json:"aiSelectableProjectIds"`
}

// Store reads and writes the settings record. Update is all-or-nothing: a
// rejected value leaves the stored record untouched.
type Store interface {
	Get(ctx context.Context) (AppSettings, error)
	Update(ctx context.Context, s AppSettings) (AppSettings, error)
}

// Normalize validates s and clamps MaxProjects into [0, maxProjectsCeiling].
// It returns the normalized value or an error describing the first violation.
func Normalize(s AppSettings, maxProjectsCeiling int) (AppSettings, error) {
	if s.MaxProjects < 0 {
		s.MaxProjects = 0
	}
	if s.MaxProjects > maxProjectsCeiling {
		s.MaxProjects = maxProjectsCeiling
	}

	locked := make(map[string]bool, len(s.LockedProjectIDs))
	for _, id := range s.LockedProjectIDs {
		locked[id] = true
	}
	for _, id := range s.AISelectableProjectIDs {
		if locked[id] {
			return AppSettings{}, fmt.Errorf("project %q is both locked and ai-selectable", id)
		}
	}

	return s, nil
}
