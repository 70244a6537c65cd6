package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvelez/jobdeck/internal/model"
)

// Engine validates and applies stage moves through the store's
// compare-and-set primitive. It never mutates a posting any other way.
type Engine struct {
	store  model.PostingStore
	logger *slog.Logger
}

func NewEngine(store model.PostingStore, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Move transitions posting id to next. demote must be set to walk a
// demotion edge.
//
// The move is attempted via compare-and-set against the observed stage. On
// a lost race the current stage is reloaded and the requested edge
// re-evaluated: if it is no longer legal the move fails with
// IllegalTransitionError; if it is still legal the compare-and-set is
// retried exactly once, and a second loss surfaces as
// ErrConcurrentModification. Races are never silently dropped or retried
// beyond that.
func (e *Engine) Move(ctx context.Context, id string, next model.Stage, demote bool) (model.Posting, error) {
	p, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Posting{}, fmt.Errorf("loading posting for transition: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if !Allowed(p.Stage, next, demote) {
			return model.Posting{}, &model.IllegalTransitionError{From: p.Stage, To: next}
		}

		ok, err := e.store.CompareAndSetStage(ctx, id, p.Stage, next)
		if err != nil {
			return model.Posting{}, fmt.Errorf("applying transition: %w", err)
		}
		if ok {
			e.logger.Info("stage transition applied",
				"posting", id,
				"from", p.Stage,
				"to", next,
				"demote", demote,
			)
			p.Stage = next
			return p, nil
		}

		if attempt == 1 {
			return model.Posting{}, model.ErrConcurrentModification
		}

		// Lost the race: reload and re-evaluate the requested edge once.
		p, err = e.store.Get(ctx, id)
		if err != nil {
			return model.Posting{}, fmt.Errorf("reloading posting after lost race: %w", err)
		}
		e.logger.Debug("transition lost compare-and-set race, re-evaluating",
			"posting", id,
			"current", p.Stage,
			"to", next,
		)
	}
}
