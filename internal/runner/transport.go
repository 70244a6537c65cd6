package runner

import "github.com/mvelez/jobdeck/internal/model"

// Chunk is one unit of streamed output, tagged with the generation counter
// value captured when its run started.
type Chunk struct {
	RunID      string
	PostingID  string
	Seq        int // 1-based position within the run's transcript
	Generation uint64
	Delta      string
}

// Transport delivers one run's output to a consumer in order.
//
// Send may block — that is the backpressure mechanism; only the run's own
// stream task ever waits on it. A Send error means the consumer is gone and
// is mapped by the controller to a stop of the current run. Done signals
// end of stream with the run's terminal status and is called exactly once.
type Transport interface {
	Send(chunk Chunk) error
	Done(status model.RunStatus)
}

// NopTransport discards all output. Used when a run is driven for its side
// effects only (e.g. warming a transcript from the CLI).
type NopTransport struct{}

func (NopTransport) Send(Chunk) error     { return nil }
func (NopTransport) Done(model.RunStatus) {}
