// Package graph implements the editable topological graph core: a
// persistent-by-layer store of OSM-style entities with constant-time
// parent/child topology lookups, transactional mutation, and a rebase
// operation that merges freshly downloaded baseline data underneath an
// existing stack of edits without disturbing them.
//
// A Graph has two entity stores. The base store holds entities loaded
// from the network and is shared by reference across an entire edit
// history — every derived Graph in that history points at the same
// *baseLayer. The local store is a small per-Graph overlay recording
// this graph's edits: an upsert, or a TOMBSTONE marking a deletion of a
// base entity. Lookups are local-first: if an id has a local entry
// (even a tombstone) it wins over whatever base says.
//
// Two topology indices — parentWays and parentRels — are mirrored on
// both layers, keyed by child id. They let callers answer "which ways
// reference this node" or "which relations reference this member" in
// constant time instead of scanning every way/relation on every query.
package graph

import (
	"errors"
	"fmt"

	"github.com/osmgraph/core/entity"
)

// Errors returned by Graph operations. ErrInvariant specifically
// corresponds to the spec's Invariant error: a mutation attempted on the
// graph belonging to the history's base edit, which must stay empty and
// immutable for the life of the EditSystem.
var (
	ErrNotFound  = errors.New("graph: entity not found")
	ErrInvariant = errors.New("graph: mutation attempted on base edit graph")
)

type idSet = map[entity.ID]struct{}

// localEntry is the local overlay's value for one id.
type localEntry struct {
	ent  entity.Entity
	tomb bool
}

// baseLayer is the store shared by reference across an entire edit
// history. It behaves as an arena: once an id is present, only Rebase
// may replace it (with same-or-newer data, never deleted).
type baseLayer struct {
	entities   map[entity.ID]entity.Entity
	parentWays map[entity.ID]idSet
	parentRels map[entity.ID]idSet
}

func newBaseLayer() *baseLayer {
	return &baseLayer{
		entities:   map[entity.ID]entity.Entity{},
		parentWays: map[entity.ID]idSet{},
		parentRels: map[entity.ID]idSet{},
	}
}

// localLayer is the per-Graph overlay of edits.
type localLayer struct {
	entities   map[entity.ID]localEntry
	parentWays map[entity.ID]idSet
	parentRels map[entity.ID]idSet
}

func newLocalLayer() *localLayer {
	return &localLayer{
		entities:   map[entity.ID]localEntry{},
		parentWays: map[entity.ID]idSet{},
		parentRels: map[entity.ID]idSet{},
	}
}

// clone shallow-copies the overlay: the id->entry and id->set maps get
// fresh backing storage, but the idSet values themselves are shared
// until the first mutation touches them (copy-on-write via
// setParent, which always clones before storing).
func (l *localLayer) clone() *localLayer {
	out := newLocalLayer()
	for k, v := range l.entities {
		out.entities[k] = v
	}
	for k, v := range l.parentWays {
		out.parentWays[k] = v
	}
	for k, v := range l.parentRels {
		out.parentRels[k] = v
	}
	return out
}

// Graph is one layer of the editable topological graph.
type Graph struct {
	base   *baseLayer
	local  *localLayer
	v      int
	locked bool // true only for the history's empty base-edit graph (H1)
	dirty  idSet
}

// NewBase constructs the empty, locked graph that anchors a history
// (H1: history[0] is the base edit with an empty graph). Its local and
// base layers are both empty, and mutation is rejected with
// ErrInvariant — callers derive working graphs from it instead.
func NewBase() *Graph {
	return &Graph{
		base:   newBaseLayer(),
		local:  newLocalLayer(),
		locked: true,
		dirty:  idSet{},
	}
}

// Derive returns a new Graph sharing g's base layer by reference and
// shallow-cloning g's local overlay. The result is never locked, even
// if g is, since only the original base-edit graph should reject
// mutation.
func (g *Graph) Derive() *Graph {
	return &Graph{
		base:  g.base,
		local: g.local.clone(),
		v:     g.v,
		dirty: idSet{},
	}
}

// Version returns the graph's local revision counter. It strictly
// increases on every mutating operation (Replace, Remove, Revert,
// Load, Commit, Rebase) per invariant I5.
func (g *Graph) Version() int { return g.v }

// SharesBase reports whether g and o were derived from the same
// history, i.e. share the same underlying base layer (H3).
func (g *Graph) SharesBase(o *Graph) bool { return g.base == o.base }

// HasEntity performs the local-first lookup: a local entry, even a
// tombstone, wins over whatever base holds.
func (g *Graph) HasEntity(id entity.ID) (entity.Entity, bool) {
	if le, ok := g.local.entities[id]; ok {
		if le.tomb {
			return nil, false
		}
		return le.ent, true
	}
	if be, ok := g.base.entities[id]; ok {
		return be, true
	}
	return nil, false
}

// Entity resolves id or fails with ErrNotFound.
func (g *Graph) Entity(id entity.ID) (entity.Entity, error) {
	e, ok := g.HasEntity(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// baseHas reports whether id is present directly in the base layer,
// ignoring any local override. Used by Rebase's "already have it"
// check, which must compare against base, not the composed view.
func (g *Graph) baseHas(id entity.ID) bool {
	_, ok := g.base.entities[id]
	return ok
}

// ParentWays returns the ways whose node list references e, resolved
// local-wins-base. It fails if any referenced way id cannot be
// resolved — a dangling parent reference would violate invariant I1.
func (g *Graph) ParentWays(e entity.Entity) ([]*entity.Way, error) {
	ids := g.parentSet(topoWay, e.ID())
	out := make([]*entity.Way, 0, len(ids))
	for id := range ids {
		resolved, err := g.Entity(id)
		if err != nil {
			return nil, fmt.Errorf("parentWays(%s): %w", e.ID(), err)
		}
		w, ok := resolved.(*entity.Way)
		if !ok {
			return nil, fmt.Errorf("parentWays(%s): %s is not a way", e.ID(), id)
		}
		out = append(out, w)
	}
	return out, nil
}

// ParentRelations returns the relations whose member list references e.
func (g *Graph) ParentRelations(e entity.Entity) ([]*entity.Relation, error) {
	ids := g.parentSet(topoRel, e.ID())
	out := make([]*entity.Relation, 0, len(ids))
	for id := range ids {
		resolved, err := g.Entity(id)
		if err != nil {
			return nil, fmt.Errorf("parentRelations(%s): %w", e.ID(), err)
		}
		r, ok := resolved.(*entity.Relation)
		if !ok {
			return nil, fmt.Errorf("parentRelations(%s): %s is not a relation", e.ID(), id)
		}
		out = append(out, r)
	}
	return out, nil
}

// ChildNodes returns w's nodes in order. It fails if any node id is
// absent.
func (g *Graph) ChildNodes(w *entity.Way) ([]*entity.Node, error) {
	out := make([]*entity.Node, 0, len(w.Nodes()))
	for _, id := range w.Nodes() {
		resolved, err := g.Entity(id)
		if err != nil {
			return nil, fmt.Errorf("childNodes(%s): %w", w.ID(), err)
		}
		n, ok := resolved.(*entity.Node)
		if !ok {
			return nil, fmt.Errorf("childNodes(%s): %s is not a node", w.ID(), id)
		}
		out = append(out, n)
	}
	return out, nil
}

// GeometryOf reports the precise GeometryKind for id, distinguishing
// GeometryVertex (a node with way/relation parents) from GeometryPoint
// (a freestanding node) — a distinction entity.Node.Geometry cannot make
// on its own since it has no access to the topology indices.
func (g *Graph) GeometryOf(id entity.ID) (entity.GeometryKind, error) {
	e, err := g.Entity(id)
	if err != nil {
		return 0, err
	}
	if n, ok := e.(*entity.Node); ok {
		if len(g.parentSet(topoWay, n.ID())) > 0 || len(g.parentSet(topoRel, n.ID())) > 0 {
			return entity.GeometryVertex, nil
		}
		return entity.GeometryPoint, nil
	}
	return e.Geometry(g), nil
}

// LocalIDs returns every id with a local override on this graph
// (an edit or a tombstone), excluding anything only present in base.
// Used by editsystem's JSON persistence to find "every edited id".
func (g *Graph) LocalIDs() idSet {
	out := make(idSet, len(g.local.entities))
	for id := range g.local.entities {
		out[id] = struct{}{}
	}
	return out
}

// AllIDs returns every id known to the graph, from either layer,
// including tombstoned ids (callers that need the head-visible set
// should filter through HasEntity).
func (g *Graph) AllIDs() idSet {
	out := make(idSet, len(g.base.entities)+len(g.local.entities))
	for id := range g.base.entities {
		out[id] = struct{}{}
	}
	for id := range g.local.entities {
		out[id] = struct{}{}
	}
	return out
}
