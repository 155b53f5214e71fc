package actions

import (
	"fmt"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

// MoveAction translates one or more nodes by a fixed delta, the
// simplest representative of the transitionable, purely-geometric
// action family (straighten/orthogonalize/rotate/scale follow the same
// shape: resolve -> compute a target Loc per node -> lerp by t).
type MoveAction struct {
	NodeIDs []entity.ID
	DX, DY  float64
}

var _ Transitionable = MoveAction{}

// Disabled reports NotEligible if any id fails to resolve to a node.
func (a MoveAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	for _, id := range a.NodeIDs {
		e, err := g.Entity(id)
		if err != nil {
			return NotEligible, true
		}
		if _, ok := e.(*entity.Node); !ok {
			return NotEligible, true
		}
	}
	return "", false
}

func (a MoveAction) Apply(g *graph.Graph) (*graph.Graph, error) { return a.ApplyAt(g, 1) }

// ApplyAt moves every listed node by (DX, DY) scaled by t, recomputing
// the geometry of any way/relation that contains one on commit (t=1).
func (a MoveAction) ApplyAt(g *graph.Graph, t float64) (*graph.Graph, error) {
	out := g.Derive()
	for _, id := range a.NodeIDs {
		e, err := out.Entity(id)
		if err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		n, ok := e.(*entity.Node)
		if !ok {
			return nil, fmt.Errorf("move: %s is not a node", id)
		}
		moved := entity.Loc{n.Loc().Lon() + a.DX*t, n.Loc().Lat() + a.DY*t}
		if err := out.Replace(n.Update(moved, true, nil)); err != nil {
			return nil, err
		}
	}
	if t >= 1 {
		out.Commit()
	}
	return out, nil
}

// DeleteAction removes one or more entities and, for a deleted node,
// prunes it from every parent way's node list (a way left with fewer
// than 2 distinct nodes is deleted in turn) and every parent
// relation's membership.
type DeleteAction struct {
	IDs []entity.ID
}

var _ Action = DeleteAction{}

// Disabled reports NotEligible if any id is already absent.
func (a DeleteAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	for _, id := range a.IDs {
		if _, ok := g.HasEntity(id); !ok {
			return NotEligible, true
		}
	}
	return "", false
}

// Apply removes the named entities, cascading node deletion into
// containing ways/relations.
func (a DeleteAction) Apply(g *graph.Graph) (*graph.Graph, error) {
	out := g.Derive()
	toDelete := map[entity.ID]bool{}
	for _, id := range a.IDs {
		toDelete[id] = true
	}

	for _, id := range a.IDs {
		e, ok := out.HasEntity(id)
		if !ok {
			continue
		}
		n, ok := e.(*entity.Node)
		if !ok {
			continue
		}
		if err := cascadeNodeDelete(out, n, toDelete); err != nil {
			return nil, err
		}
	}

	entities := make([]entity.Entity, 0, len(a.IDs))
	for _, id := range a.IDs {
		if e, ok := out.HasEntity(id); ok {
			entities = append(entities, e)
		}
	}
	if len(entities) > 0 {
		if err := out.Remove(entities...); err != nil {
			return nil, err
		}
	}

	out.Commit()
	return out, nil
}

func cascadeNodeDelete(g *graph.Graph, n *entity.Node, toDelete map[entity.ID]bool) error {
	ways, err := g.ParentWays(n)
	if err != nil {
		return nil // dangling parent ref during a multi-step cascade is self-healing here
	}
	for _, w := range ways {
		var remaining []entity.ID
		for _, id := range w.Nodes() {
			if id == n.ID() {
				continue
			}
			remaining = append(remaining, id)
		}
		newWay := w.Update(remaining, w.Tags())
		if newWay.IsDegenerate() {
			toDelete[w.ID()] = true
			if err := g.Remove(newWay); err != nil {
				return err
			}
			continue
		}
		if err := g.Replace(newWay); err != nil {
			return err
		}
	}

	rels, err := g.ParentRelations(n)
	if err != nil {
		return nil
	}
	for _, r := range rels {
		var members []entity.Member
		for _, m := range r.Members() {
			if m.ID == n.ID() {
				continue
			}
			members = append(members, m)
		}
		if err := g.Replace(r.Update(members, r.Tags())); err != nil {
			return err
		}
	}
	return nil
}
