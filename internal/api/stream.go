package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/runner"
)

// sseTransport adapts one HTTP response into a runner.Transport using
// server-sent events. Send blocks on the client write, which is the
// stream's backpressure; a write failure or a gone client surfaces as a
// Send error and the controller maps it to a stop.
type sseTransport struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context

	headers sync.Once
	done    chan struct{}
	closed  bool
}

func newSSETransport(w http.ResponseWriter, r *http.Request) (*sseTransport, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &sseTransport{
		w:       w,
		flusher: flusher,
		ctx:     r.Context(),
		done:    make(chan struct{}),
	}, nil
}

func (t *sseTransport) writeHeaders() {
	t.headers.Do(func() {
		t.w.Header().Set("Content-Type", "text/event-stream")
		t.w.Header().Set("Cache-Control", "no-cache")
		t.w.Header().Set("Connection", "keep-alive")
		t.w.WriteHeader(http.StatusOK)
		t.flusher.Flush()
	})
}

// Begin emits the run handle as the opening event so the client learns the
// run id before any chunk arrives.
func (t *sseTransport) Begin(handle runner.RunHandle) {
	t.writeHeaders()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	data, _ := json.Marshal(map[string]any{
		"runId":      handle.RunID,
		"postingId":  handle.PostingID,
		"generation": handle.Generation,
	})
	fmt.Fprintf(t.w, "event: run\ndata: %s\n\n", data)
	t.flusher.Flush()
}

type chunkEvent struct {
	RunID string `json:"runId"`
	Seq   int    `json:"seq"`
	Delta string `json:"delta"`
}

func (t *sseTransport) Send(chunk runner.Chunk) error {
	if err := t.ctx.Err(); err != nil {
		return fmt.Errorf("client gone: %w", err)
	}
	t.writeHeaders()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("stream closed")
	}

	data, err := json.Marshal(chunkEvent{RunID: chunk.RunID, Seq: chunk.Seq, Delta: chunk.Delta})
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}
	if _, err := fmt.Fprintf(t.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	t.flusher.Flush()
	return nil
}

// Done emits the terminal status event and releases the handler goroutine.
func (t *sseTransport) Done(status model.RunStatus) {
	t.writeHeaders()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true

	fmt.Fprintf(t.w, "event: done\ndata: {\"status\":%q}\n\n", status)
	t.flusher.Flush()
	close(t.done)
}
