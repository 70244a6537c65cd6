package pipeline

import (
	"testing"

	"github.com/mvelez/jobdeck/internal/model"
)

func TestAllowed_ForwardEdges(t *testing.T) {
	if !Allowed(model.StageDiscovered, model.StageReady, false) {
		t.Fatal("discovered -> ready should be allowed")
	}
	if !Allowed(model.StageReady, model.StageApplied, false) {
		t.Fatal("ready -> applied should be allowed")
	}
	if Allowed(model.StageDiscovered, model.StageApplied, false) {
		t.Fatal("stage skipping must not be allowed")
	}
}

func TestAllowed_DemotionRequiresIntent(t *testing.T) {
	// Without the demote flag, reverse edges are illegal.
	if Allowed(model.StageReady, model.StageDiscovered, false) {
		t.Fatal("ready -> discovered without demote must be rejected")
	}
	if Allowed(model.StageApplied, model.StageReady, false) {
		t.Fatal("applied -> ready without demote must be rejected")
	}

	if !Allowed(model.StageReady, model.StageDiscovered, true) {
		t.Fatal("ready -> discovered with demote should be allowed")
	}
	if !Allowed(model.StageApplied, model.StageReady, true) {
		t.Fatal("applied -> ready with demote should be allowed")
	}
}

func TestAllowed_DemoteFlagDoesNotWidenForward(t *testing.T) {
	// The flag marks demotion intent; it is not a bypass for promotions.
	if Allowed(model.StageDiscovered, model.StageReady, true) {
		t.Fatal("forward edge with demote set must be rejected")
	}
}

func TestAllowed_AppliedNeverReachesDiscovered(t *testing.T) {
	for _, demote := range []bool{false, true} {
		if Allowed(model.StageApplied, model.StageDiscovered, demote) {
			t.Fatalf("applied -> discovered must never be a single edge (demote=%v)", demote)
		}
	}
}

func TestAllowed_SelfAndUnknown(t *testing.T) {
	if Allowed(model.StageReady, model.StageReady, false) {
		t.Fatal("self transition must be rejected")
	}
	if Allowed(model.StageAll, model.StageReady, false) {
		t.Fatal("the all pseudo-stage is not part of the graph")
	}
}
