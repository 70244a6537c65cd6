// Package pipeline defines the stage state machine for postings and the
// engine that applies stage moves.
//
// Valid stage graph:
//
//	discovered ──► ready ──► applied
//	     ▲           │  ▲        │
//	     └───────────┘  └────────┘   (demotion, explicit caller intent only)
//
// Demotion edges are never taken automatically; callers must set the demote
// flag to walk one.
package pipeline

import "github.com/mvelez/jobdeck/internal/model"

// forwardEdges lists the promotion edges.
var forwardEdges = map[model.Stage]model.Stage{
	model.StageDiscovered: model.StageReady,
	model.StageReady:      model.StageApplied,
}

// demotionEdges lists the reverse edges, gated behind explicit intent.
var demotionEdges = map[model.Stage]model.Stage{
	model.StageReady:   model.StageDiscovered,
	model.StageApplied: model.StageReady,
}

// Allowed reports whether moving from → to is permitted. demote marks the
// caller's explicit intent to walk a reverse edge; without it only forward
// edges are legal.
func Allowed(from, to model.Stage, demote bool) bool {
	if next, ok := forwardEdges[from]; ok && next == to && !demote {
		return true
	}
	if demote {
		if next, ok := demotionEdges[from]; ok && next == to {
			return true
		}
	}
	return false
}
