// Package actions implements the pure graph -> graph transforms an
// editor drives: join, reverse, connect, circularize, and the simpler
// representative operations (move, delete) that follow the same
// pattern. Every action is pure: it derives a fresh Graph from its
// input rather than mutating it in place, and exposes a Disabled check
// so a caller can ask "would this be a no-op/invalid" before applying.
//
// This mirrors the teacher's apoc/refactor package one level up: where
// refactor.MergeNodes mutates a live storage.Storage in place, these
// actions return a new, independently addressable Graph, matching the
// editable-history model's copy-on-derive semantics.
package actions

import "github.com/osmgraph/core/graph"

// DisabledCode is a stable string discriminant describing why an
// action cannot apply cleanly. It is a return value, never an error —
// disabled codes are meant to reach a UI layer as a user-facing reason.
type DisabledCode string

const (
	NotEligible         DisabledCode = "not_eligible"
	NotAdjacent         DisabledCode = "not_adjacent"
	Restriction         DisabledCode = "restriction"
	Connectivity        DisabledCode = "connectivity"
	ConflictingRelations DisabledCode = "conflicting_relations"
	ConflictingTags     DisabledCode = "conflicting_tags"
	PathsIntersect      DisabledCode = "paths_intersect"
	RelationCode        DisabledCode = "relation"
	AlreadyCircular     DisabledCode = "already_circular"
)

// Action is a pure graph -> graph transform with a pre-flight check.
type Action interface {
	// Disabled reports a reason the action would be invalid or a no-op
	// against g, or ("", false) if it is safe to Apply.
	Disabled(g *graph.Graph) (DisabledCode, bool)
	// Apply runs the action at its terminal state (t=1 for
	// transitionable actions) and returns a freshly derived graph.
	Apply(g *graph.Graph) (*graph.Graph, error)
}

// Transitionable is implemented by actions that support an
// intermediate state for animation (circularize, and geometrically
// continuous moves).
type Transitionable interface {
	Action
	// ApplyAt returns the graph interpolated at t in [0,1]. ApplyAt(g,
	// 1) must equal Apply(g).
	ApplyAt(g *graph.Graph, t float64) (*graph.Graph, error)
}
