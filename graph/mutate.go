package graph

import (
	"sort"

	"github.com/osmgraph/core/entity"
)

// sortNodesFirst orders entities so that nodes are applied before ways
// and relations, keeping topology consistent when a call mixes a moved
// node with the way that references it.
func sortNodesFirst(entities []entity.Entity) []entity.Entity {
	out := make([]entity.Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

func rank(e entity.Entity) int {
	switch e.(type) {
	case *entity.Node:
		return 0
	case *entity.Way:
		return 1
	default:
		return 2
	}
}

// Replace upserts one or more entities. Way/relation inputs are sorted
// so nodes are processed first. An input that is identical (same
// pointer) to the entity currently resolved for its id is a no-op.
func (g *Graph) Replace(entities ...entity.Entity) error {
	if g.locked {
		return ErrInvariant
	}
	for _, e := range sortNodesFirst(entities) {
		id := e.ID()
		if cur, ok := g.HasEntity(id); ok && sameEntity(cur, e) {
			continue
		}
		prev, _ := g.HasEntity(id)
		g.local.entities[id] = localEntry{ent: e}
		g.updateTopology(id, prev, e)
		g.dirty[id] = struct{}{}
	}
	g.v++
	return nil
}

func sameEntity(a, b entity.Entity) bool {
	switch av := a.(type) {
	case *entity.Node:
		bv, ok := b.(*entity.Node)
		return ok && av == bv
	case *entity.Way:
		bv, ok := b.(*entity.Way)
		return ok && av == bv
	case *entity.Relation:
		bv, ok := b.(*entity.Relation)
		return ok && av == bv
	}
	return false
}

// Remove tombstones one or more entities: local[id] becomes TOMBSTONE.
func (g *Graph) Remove(entities ...entity.Entity) error {
	if g.locked {
		return ErrInvariant
	}
	for _, e := range sortNodesFirst(entities) {
		id := e.ID()
		prev, _ := g.HasEntity(id)
		g.local.entities[id] = localEntry{tomb: true}
		g.updateTopology(id, prev, nil)
		g.dirty[id] = struct{}{}
	}
	g.v++
	return nil
}

// Revert deletes the local override for each id, restoring the base
// view (or true absence, if base has no such entity either).
func (g *Graph) Revert(ids ...entity.ID) error {
	if g.locked {
		return ErrInvariant
	}
	for _, id := range ids {
		prev, _ := g.HasEntity(id)
		delete(g.local.entities, id)
		curr, _ := g.HasEntity(id)
		g.updateTopology(id, prev, curr)
		g.dirty[id] = struct{}{}
	}
	g.v++
	return nil
}

// Change describes one entry of a Load payload: Entity set means
// upsert, Entity nil means delete (tombstone).
type Change struct {
	ID     entity.ID
	Entity entity.Entity
}

// Load applies a bulk set of replace/remove changes in one pass and
// recomputes geometry immediately (unlike Replace/Remove/Revert, which
// defer geometry recomputation to Commit). Per the spec's resolution of
// the load/previous ambiguity: Load leaves the result as work in
// progress — callers choose to Commit or Revert afterward.
func (g *Graph) Load(changes []Change) error {
	if g.locked {
		return ErrInvariant
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return rank(changeRankEntity(changes[i])) < rank(changeRankEntity(changes[j]))
	})
	for _, c := range changes {
		prev, _ := g.HasEntity(c.ID)
		if c.Entity == nil {
			g.local.entities[c.ID] = localEntry{tomb: true}
		} else {
			g.local.entities[c.ID] = localEntry{ent: c.Entity}
		}
		curr, _ := g.HasEntity(c.ID)
		g.updateTopology(c.ID, prev, curr)
		g.dirty[c.ID] = struct{}{}
	}
	g.v++
	g.RecomputeDirtyGeometry()
	return nil
}

func changeRankEntity(c Change) entity.Entity {
	if c.Entity != nil {
		return c.Entity
	}
	return (*entity.Relation)(nil) // unknown kind for a bare delete: sorts last, safest default
}

// Commit snapshots bookkeeping for the current graph state: it
// recomputes geometry for everything touched since the last Commit (or
// since the graph was created) and advances the version counter.
func (g *Graph) Commit() {
	g.RecomputeDirtyGeometry()
	g.v++
}

// RecomputeDirtyGeometry recomputes cached geometry for every way or
// relation touched since the last call, plus any way that contains a
// touched node (a moved node must refresh its containing ways). The
// pass is resilient to entities that were touched and then deleted: a
// dirty id that no longer resolves is silently skipped.
func (g *Graph) RecomputeDirtyGeometry() {
	if len(g.dirty) == 0 {
		return
	}
	touched := make(idSet, len(g.dirty))
	for id := range g.dirty {
		touched[id] = struct{}{}
		if e, ok := g.HasEntity(id); ok {
			if _, isNode := e.(*entity.Node); isNode {
				for wid := range g.parentSet(topoWay, id) {
					touched[wid] = struct{}{}
				}
				for rid := range g.parentSet(topoRel, id) {
					touched[rid] = struct{}{}
				}
			}
		}
	}
	for id := range touched {
		g.recomputeOne(id)
	}
	g.dirty = idSet{}
}

func (g *Graph) recomputeOne(id entity.ID) {
	e, ok := g.HasEntity(id)
	if !ok {
		return
	}
	switch v := e.(type) {
	case *entity.Way:
		g.local.entities[id] = localEntry{ent: v.RecomputeGeometry(g)}
	case *entity.Relation:
		g.local.entities[id] = localEntry{ent: v.RecomputeGeometry(g)}
	}
}
