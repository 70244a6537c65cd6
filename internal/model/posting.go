package model

import (
	"context"
	"fmt"
	"time"
)

// SourceID identifies an origin of ingested postings.
type SourceID string

const (
	SourceAdzuna   SourceID = "adzuna"   // paid search API
	SourceManual   SourceID = "manual"   // paste-and-infer, user confirmed
	SourceWebhook  SourceID = "webhook"  // inbound third-party delivery
	SourceVisaFeed SourceID = "visafeed" // licensed visa-sponsor feed
)

// ParseSourceID converts a raw string to a SourceID, returning an error for
// unknown values.
func ParseSourceID(s string) (SourceID, error) {
	id := SourceID(s)
	switch id {
	case SourceAdzuna, SourceManual, SourceWebhook, SourceVisaFeed:
		return id, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Stage is a posting's position in the acquisition pipeline.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageReady      Stage = "ready"
	StageApplied    Stage = "applied"

	// StageAll is a query-time view accepted by ListByStage. It is never
	// stored on a posting.
	StageAll Stage = "all"
)

// ParseStage converts a raw string to a storable Stage. StageAll is rejected
// here; use ParseStageFilter for list queries.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	switch st {
	case StageDiscovered, StageReady, StageApplied:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// ParseStageFilter converts a raw string to a Stage usable as a list filter.
// Empty input means "all".
func ParseStageFilter(s string) (Stage, error) {
	if s == "" || Stage(s) == StageAll {
		return StageAll, nil
	}
	return ParseStage(s)
}

// Posting is one normalized job listing tracked through the pipeline.
// Created by the ingestion normalizer, stage-mutated only through
// CompareAndSetStage.
type Posting struct {
	ID           string
	Source       SourceID
	DedupKey     string // canonical external identity; see ingest.DedupKey
	Title        string
	Company      string
	Location     string
	Description  string
	URL          string // external posting URL
	RawRef       string // raw source payload, stored verbatim
	DiscoveredAt time.Time
	Stage        Stage
	VisaSponsor  *bool // nil until cross-referenced against the sponsor register
}

// PostingStore persists postings. CompareAndSetStage is the single point of
// serialization for a posting's stage: it returns false with no mutation
// when the stored stage differs from expected.
type PostingStore interface {
	Get(ctx context.Context, id string) (Posting, error)
	GetByDedupKey(ctx context.Context, key string) (Posting, error)
	Put(ctx context.Context, p Posting) error
	ListByStage(ctx context.Context, stage Stage) ([]Posting, error)
	CompareAndSetStage(ctx context.Context, id string, expected, next Stage) (bool, error)
}
