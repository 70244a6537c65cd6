// Package runner owns the lifecycle of AI generation runs: at most one
// streaming run per posting, mid-stream cancellation, and regeneration that
// supersedes any prior run for the same posting.
//
// Correctness rests on a per-posting generation counter rather than on
// blocking: every run captures the counter value at start, and chunks,
// completions, and failures tagged with an older value are discarded. Stop
// bumps the counter and fires a cancel without waiting for the stream task
// to unwind, so the caller-visible transition is immediate even when the
// underlying stream is slow to cancel.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvelez/jobdeck/internal/generate"
	"github.com/mvelez/jobdeck/internal/model"
)

// RunHandle identifies a started run to its caller.
type RunHandle struct {
	RunID      string
	PostingID  string
	Generation uint64
}

// runState is the per-posting controller state. All fields are guarded by
// the controller mutex.
type runState struct {
	counter   uint64 // live generation counter; chunks tagged below it are stale
	run       *model.GenerationRun
	cancel    context.CancelFunc
	transport Transport
}

// Controller manages generation runs across postings.
type Controller struct {
	mu     sync.Mutex
	states map[string]*runState // by posting id

	gen    generate.Generator
	store  model.PostingStore
	runs   model.RunStore
	logger *slog.Logger
}

func NewController(gen generate.Generator, store model.PostingStore, runs model.RunStore, logger *slog.Logger) *Controller {
	return &Controller{
		states: make(map[string]*runState),
		gen:    gen,
		store:  store,
		runs:   runs,
		logger: logger,
	}
}

// Start begins a run for the posting, streaming output to t. It fails with
// ErrAlreadyStreaming while a run is live for the posting.
func (c *Controller) Start(ctx context.Context, postingID string, t Transport) (RunHandle, error) {
	p, err := c.store.Get(ctx, postingID)
	if err != nil {
		return RunHandle{}, fmt.Errorf("loading posting for run: %w", err)
	}

	c.mu.Lock()
	st := c.state(postingID)
	if st.run != nil && st.run.Status == model.RunStreaming {
		c.mu.Unlock()
		return RunHandle{}, model.ErrAlreadyStreaming
	}
	handle := c.startLocked(st, p, t)
	c.mu.Unlock()

	return handle, nil
}

// Stop transitions a streaming run to stopped, invalidates any chunks still
// in flight, and signals cancellation to the generator without waiting for
// it to be observed. Stopping a posting whose run is already terminal is a
// no-op returning the current status.
func (c *Controller) Stop(ctx context.Context, postingID string) (model.RunStatus, error) {
	c.mu.Lock()
	st, ok := c.states[postingID]
	if !ok || st.run == nil {
		c.mu.Unlock()
		return "", model.ErrRunNotFound
	}
	if st.run.Status != model.RunStreaming {
		status := st.run.Status
		c.mu.Unlock()
		return status, nil
	}
	oldT := c.stopLocked(st)
	runCopy := c.copyRunLocked(st)
	c.mu.Unlock()

	if oldT != nil {
		oldT.Done(model.RunStopped)
	}
	if err := c.runs.SaveRun(ctx, runCopy); err != nil {
		c.logger.Error("persisting stopped run", "posting", postingID, "error", err)
	}
	return model.RunStopped, nil
}

// Regenerate supersedes any live run for the posting and starts a new one
// in the same critical section: no caller can observe an intermediate
// status between the stop and the start. The generation counter strictly
// increases.
func (c *Controller) Regenerate(ctx context.Context, postingID string, t Transport) (RunHandle, error) {
	p, err := c.store.Get(ctx, postingID)
	if err != nil {
		return RunHandle{}, fmt.Errorf("loading posting for run: %w", err)
	}

	c.mu.Lock()
	st := c.state(postingID)
	var (
		oldT       Transport
		superseded *model.GenerationRun
	)
	if st.run != nil && st.run.Status == model.RunStreaming {
		oldT = c.stopLocked(st)
		run := c.copyRunLocked(st)
		superseded = &run
	}
	handle := c.startLocked(st, p, t)
	c.mu.Unlock()

	if oldT != nil {
		oldT.Done(model.RunStopped)
	}
	if superseded != nil {
		if err := c.runs.SaveRun(ctx, *superseded); err != nil {
			c.logger.Error("persisting superseded run", "posting", postingID, "error", err)
		}
	}
	return handle, nil
}

// Run returns a snapshot of the posting's current run, falling back to the
// persisted run when the controller holds no in-memory state.
func (c *Controller) Run(ctx context.Context, postingID string) (model.GenerationRun, error) {
	c.mu.Lock()
	if st, ok := c.states[postingID]; ok && st.run != nil {
		run := c.copyRunLocked(st)
		c.mu.Unlock()
		return run, nil
	}
	c.mu.Unlock()

	return c.runs.GetRun(ctx, postingID)
}

// state returns the per-posting state, creating it on first use. Caller
// holds the mutex.
func (c *Controller) state(postingID string) *runState {
	st, ok := c.states[postingID]
	if !ok {
		st = &runState{}
		c.states[postingID] = st
	}
	return st
}

// startLocked increments the generation counter, installs a new streaming
// run, and spawns its stream task. Caller holds the mutex.
func (c *Controller) startLocked(st *runState, p model.Posting, t Transport) RunHandle {
	st.counter++
	g := st.counter

	run := &model.GenerationRun{
		ID:         uuid.NewString(),
		PostingID:  p.ID,
		Status:     model.RunStreaming,
		Generation: g,
		StartedAt:  time.Now().UTC(),
	}
	st.run = run
	st.transport = t

	// The run's lifetime is controlled by stop/regenerate, not by the
	// caller's request context.
	runCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel

	go c.stream(runCtx, p, g)

	c.logger.Info("generation run started",
		"posting", p.ID,
		"run", run.ID,
		"generation", g,
	)
	return RunHandle{RunID: run.ID, PostingID: p.ID, Generation: g}
}

// stopLocked marks the current run stopped, bumps the counter so in-flight
// output becomes stale, and fires the cancel. It returns the transport the
// caller must finish with Done after releasing the mutex. Caller holds the
// mutex.
func (c *Controller) stopLocked(st *runState) Transport {
	st.counter++
	st.run.Status = model.RunStopped
	now := time.Now().UTC()
	st.run.EndedAt = &now

	if st.cancel != nil {
		st.cancel() // best-effort; never waits for the task to observe it
		st.cancel = nil
	}
	t := st.transport
	st.transport = nil

	c.logger.Info("generation run stopped",
		"posting", st.run.PostingID,
		"run", st.run.ID,
		"generation", st.run.Generation,
	)
	return t
}

// copyRunLocked snapshots the current run, detaching the chunk slice so
// later appends cannot race readers. Caller holds the mutex.
func (c *Controller) copyRunLocked(st *runState) model.GenerationRun {
	run := *st.run
	run.Chunks = append([]string(nil), st.run.Chunks...)
	return run
}

// stream is the per-run task: it drives the generator and funnels every
// delta through deliver, then settles the run's terminal status.
func (c *Controller) stream(ctx context.Context, p model.Posting, g uint64) {
	_, err := c.gen.Generate(ctx, p, func(delta string) {
		c.deliver(p.ID, g, delta)
	})
	c.finish(p.ID, g, err)
}

// deliver appends one chunk to the run's transcript and forwards it, but
// only while g is still the live generation counter; stale chunks are
// discarded. The staleness check and append happen under the mutex; the
// forward happens after release on the run's own task, so transport order
// matches transcript order and nothing else ever blocks on the consumer.
func (c *Controller) deliver(postingID string, g uint64, delta string) {
	c.mu.Lock()
	st, ok := c.states[postingID]
	if !ok || st.counter != g || st.run == nil || st.run.Status != model.RunStreaming {
		c.mu.Unlock()
		c.logger.Debug("discarding stale chunk", "posting", postingID, "generation", g)
		return
	}
	st.run.Chunks = append(st.run.Chunks, delta)
	chunk := Chunk{
		RunID:      st.run.ID,
		PostingID:  postingID,
		Seq:        len(st.run.Chunks),
		Generation: g,
		Delta:      delta,
	}
	t := st.transport
	c.mu.Unlock()

	if t == nil {
		return
	}
	if err := t.Send(chunk); err != nil {
		// Consumer-side cancellation maps to stop.
		c.logger.Debug("transport rejected chunk, stopping run", "posting", postingID, "error", err)
		c.stopIfCurrent(postingID, g)
	}
}

// stopIfCurrent stops the run only if g is still the live generation; used
// for consumer-side cancellation racing a regenerate.
func (c *Controller) stopIfCurrent(postingID string, g uint64) {
	c.mu.Lock()
	st, ok := c.states[postingID]
	if !ok || st.counter != g || st.run == nil || st.run.Status != model.RunStreaming {
		c.mu.Unlock()
		return
	}
	c.stopLocked(st)
	runCopy := c.copyRunLocked(st)
	c.mu.Unlock()

	if err := c.runs.SaveRun(context.Background(), runCopy); err != nil {
		c.logger.Error("persisting stopped run", "posting", postingID, "error", err)
	}
}

// finish settles the run's terminal status when the generator returns. A
// stale g (the run was stopped or superseded meanwhile) discards the
// signal: the visible status was already settled by stop.
func (c *Controller) finish(postingID string, g uint64, genErr error) {
	c.mu.Lock()
	st, ok := c.states[postingID]
	if !ok || st.counter != g || st.run == nil || st.run.Status != model.RunStreaming {
		c.mu.Unlock()
		c.logger.Debug("discarding stale end-of-stream", "posting", postingID, "generation", g)
		return
	}

	now := time.Now().UTC()
	st.run.EndedAt = &now
	if genErr != nil {
		st.run.Status = model.RunFailed
	} else {
		st.run.Status = model.RunCompleted
	}
	st.cancel = nil
	t := st.transport
	st.transport = nil
	runCopy := c.copyRunLocked(st)
	c.mu.Unlock()

	if genErr != nil {
		failed := &model.GenerationFailedError{
			RunID:      runCopy.ID,
			Transcript: runCopy.Transcript(),
			Err:        genErr,
		}
		c.logger.Error("generation run failed",
			"posting", postingID,
			"run", runCopy.ID,
			"error", failed,
		)
	} else {
		c.logger.Info("generation run completed",
			"posting", postingID,
			"run", runCopy.ID,
			"chunks", len(runCopy.Chunks),
		)
	}

	if t != nil {
		t.Done(runCopy.Status)
	}
	if err := c.runs.SaveRun(context.Background(), runCopy); err != nil {
		c.logger.Error("persisting finished run", "posting", postingID, "error", err)
	}
}
