package store

import (
	"context"
	"sync"

	"github.com/mvelez/jobdeck/internal/model"
)

// MemoryStore is a mutex-guarded in-memory PostingStore and RunStore.
// It backs tests, where nothing should touch disk.
type MemoryStore struct {
	mu       sync.Mutex
	postings map[string]model.Posting // by id
	byKey    map[string]string        // dedup key -> id
	runs     map[string]model.GenerationRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		postings: make(map[string]model.Posting),
		byKey:    make(map[string]string),
		runs:     make(map[string]model.GenerationRun),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postings[id]
	if !ok {
		return model.Posting{}, model.ErrPostingNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetByDedupKey(_ context.Context, key string) (model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok {
		return model.Posting{}, model.ErrPostingNotFound
	}
	return s.postings[id], nil
}

func (s *MemoryStore) Put(_ context.Context, p model.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings[p.ID] = p
	s.byKey[p.DedupKey] = p.ID
	return nil
}

func (s *MemoryStore) ListByStage(_ context.Context, stage model.Stage) ([]model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Posting
	for _, p := range s.postings {
		if stage == model.StageAll || p.Stage == stage {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) CompareAndSetStage(_ context.Context, id string, expected, next model.Stage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postings[id]
	if !ok {
		return false, model.ErrPostingNotFound
	}
	if p.Stage != expected {
		return false, nil
	}
	p.Stage = next
	s.postings[id] = p
	return true, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.GenerationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.PostingID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, postingID string) (model.GenerationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[postingID]
	if !ok {
		return model.GenerationRun{}, model.ErrRunNotFound
	}
	return run, nil
}
