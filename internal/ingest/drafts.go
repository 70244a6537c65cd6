package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvelez/jobdeck/internal/model"
)

// Draft is an AI-inferred manual posting awaiting user review. Drafts live
// only in memory: an unconfirmed draft is never persisted as a posting.
type Draft struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Raw         string // the pasted text the fields were inferred from
	CreatedAt   time.Time
}

// DraftRegistry holds pending drafts for the duration of the review step.
// Entries expire after ttl; expired entries are swept lazily on access.
type DraftRegistry struct {
	mu     sync.Mutex
	drafts map[string]Draft
	ttl    time.Duration
}

func NewDraftRegistry(ttl time.Duration) *DraftRegistry {
	return &DraftRegistry{
		drafts: make(map[string]Draft),
		ttl:    ttl,
	}
}

// Add registers a draft, assigning it an id when missing, and returns it.
func (r *DraftRegistry) Add(d Draft) Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	r.drafts[d.ID] = d
	return d
}

// Get returns the draft with the given id, or ErrDraftNotFound when it is
// unknown or has expired.
func (r *DraftRegistry) Get(id string) (Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	d, ok := r.drafts[id]
	if !ok {
		return Draft{}, model.ErrDraftNotFound
	}
	return d, nil
}

// Remove discards a draft. Removing an unknown id is a no-op.
func (r *DraftRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
}

func (r *DraftRegistry) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-r.ttl)
	for id, d := range r.drafts {
		if d.CreatedAt.Before(cutoff) {
			delete(r.drafts, id)
		}
	}
}
