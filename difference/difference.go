// Package difference computes structural diffs between two Graph
// snapshots: which entities were created, modified, or deleted, plus a
// render-friendly summary that also surfaces the parent ways/relations
// of any moved node.
//
// This mirrors the teacher's apoc/diff package (property-by-property
// diffing of two nodes) one level up: instead of diffing two nodes'
// properties, Difference diffs two whole graphs' entity sets.
package difference

import "github.com/osmgraph/core/entity"

// ChangeType classifies how an id's value moved between base and head.
type ChangeType int

const (
	Created ChangeType = iota
	Modified
	Deleted
)

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one id's before/after pair. Base or Head may be nil
// (absent), but not both — an id with neither present never appears.
type Change struct {
	Base entity.Entity
	Head entity.Entity
}

// GraphView is the minimal read surface Difference needs from a Graph.
type GraphView interface {
	entity.GraphView
	AllIDs() map[entity.ID]struct{}
}

// ParentLookup resolves the parent ways/relations of a node, used to
// surface way-level change when only a child node moved. Satisfied by
// *graph.Graph.
type ParentLookup interface {
	ParentWays(e entity.Entity) ([]*entity.Way, error)
	ParentRelations(e entity.Entity) ([]*entity.Relation, error)
}

// Difference holds the computed change set between a base and a head
// graph.
type Difference struct {
	base    GraphView
	head    GraphView
	parents ParentLookup
	changes map[entity.ID]Change
}

// entityGraph is the superset interface Compute needs: read access plus
// parent lookups, satisfied by *graph.Graph for the head argument.
type entityGraph interface {
	GraphView
	ParentLookup
}

// Compute builds a Difference by walking every id known to either
// graph and comparing their resolved values. Entities compare equal by
// (id, v) — value-by-version equality, not deep structural equality —
// matching the spec's equality rule.
func Compute(base GraphView, head entityGraph) *Difference {
	d := &Difference{base: base, head: head, parents: head, changes: map[entity.ID]Change{}}

	ids := map[entity.ID]struct{}{}
	for id := range base.AllIDs() {
		ids[id] = struct{}{}
	}
	for id := range head.AllIDs() {
		ids[id] = struct{}{}
	}

	for id := range ids {
		baseE, baseOK := base.HasEntity(id)
		headE, headOK := head.HasEntity(id)
		if !baseOK && !headOK {
			continue
		}
		if baseOK && headOK && sameVersion(baseE, headE) {
			continue
		}
		d.changes[id] = Change{Base: entityOrNil(baseOK, baseE), Head: entityOrNil(headOK, headE)}
	}

	return d
}

func entityOrNil(ok bool, e entity.Entity) entity.Entity {
	if !ok {
		return nil
	}
	return e
}

func sameVersion(a, b entity.Entity) bool {
	return a.ID() == b.ID() && a.Version() == b.Version()
}

// Changes returns the full id -> (base, head) change map.
func (d *Difference) Changes() map[entity.ID]Change {
	return d.changes
}

// Created returns every entity present in head but not in base.
func (d *Difference) Created() []entity.Entity {
	var out []entity.Entity
	for _, c := range d.changes {
		if c.Base == nil && c.Head != nil {
			out = append(out, c.Head)
		}
	}
	return out
}

// Modified returns every entity present in both, with a different
// version.
func (d *Difference) Modified() []entity.Entity {
	var out []entity.Entity
	for _, c := range d.changes {
		if c.Base != nil && c.Head != nil {
			out = append(out, c.Head)
		}
	}
	return out
}

// Deleted returns every entity present in base but absent from head.
func (d *Difference) Deleted() []entity.Entity {
	var out []entity.Entity
	for _, c := range d.changes {
		if c.Base != nil && c.Head == nil {
			out = append(out, c.Base)
		}
	}
	return out
}

// SummaryEntry is one row of Summary(): the final entity as read from
// the head graph (nil if deleted) and its change type.
type SummaryEntry struct {
	Entity     entity.Entity
	ChangeType ChangeType
}

// Summary returns a render-friendly view that also marks the parent
// ways/relations of any changed node as modified — a node move alone
// must be surfaced as "the way changed too", since that's what a
// renderer needs to redraw.
func (d *Difference) Summary() map[entity.ID]SummaryEntry {
	out := make(map[entity.ID]SummaryEntry, len(d.changes))
	for id, c := range d.changes {
		out[id] = SummaryEntry{Entity: c.Head, ChangeType: changeType(c)}
	}

	for id, c := range d.changes {
		n, ok := changedNode(c)
		if !ok {
			continue
		}
		for _, list := range parentIDsOf(d.parents, n) {
			if _, already := out[list]; already {
				continue
			}
			headE, ok := d.head.HasEntity(list)
			if !ok {
				continue
			}
			out[list] = SummaryEntry{Entity: headE, ChangeType: Modified}
		}
		_ = id
	}

	return out
}

func changedNode(c Change) (entity.Entity, bool) {
	e := c.Head
	if e == nil {
		e = c.Base
	}
	if e == nil {
		return nil, false
	}
	_, ok := e.(*entity.Node)
	return e, ok
}

func parentIDsOf(parents ParentLookup, n entity.Entity) []entity.ID {
	var out []entity.ID
	if ways, err := parents.ParentWays(n); err == nil {
		for _, w := range ways {
			out = append(out, w.ID())
		}
	}
	if rels, err := parents.ParentRelations(n); err == nil {
		for _, r := range rels {
			out = append(out, r.ID())
		}
	}
	return out
}

func changeType(c Change) ChangeType {
	switch {
	case c.Base == nil:
		return Created
	case c.Head == nil:
		return Deleted
	default:
		return Modified
	}
}

// Complete returns id -> final entity (or nil, for deletions) across
// every changed id — "everything the caller must re-render".
func (d *Difference) Complete() map[entity.ID]entity.Entity {
	out := make(map[entity.ID]entity.Entity, len(d.changes))
	for id, c := range d.changes {
		out[id] = c.Head
	}
	return out
}
