package actions

import (
	"fmt"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

// JoinAction merges two or more contiguous line ways end-to-end into a
// single survivor.
type JoinAction struct {
	WayIDs []entity.ID
}

var _ Action = JoinAction{}

// Disabled walks the eligibility/adjacency/relation/geometry checks in
// the order the spec lists them: not_eligible, not_adjacent,
// restriction/connectivity, conflicting_relations, paths_intersect,
// conflicting_tags.
func (a JoinAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	ways, code, disabled := a.resolveWays(g)
	if disabled {
		return code, true
	}

	chain, ok := chainWays(g, ways)
	if !ok {
		return NotAdjacent, true
	}

	for _, w := range ways {
		if code, disabled := relationDisabledCode(g, w); disabled {
			return code, true
		}
	}

	if !relationsAgreeOnJoin(g, ways) {
		return ConflictingRelations, true
	}

	merged := mergeNodeChain(chain)
	if pathSelfIntersects(g, merged) {
		return PathsIntersect, true
	}

	if !tagsJoinCleanly(ways) {
		return ConflictingTags, true
	}

	return "", false
}

func (a JoinAction) resolveWays(g *graph.Graph) ([]*entity.Way, DisabledCode, bool) {
	if len(a.WayIDs) < 2 {
		return nil, NotEligible, true
	}
	out := make([]*entity.Way, 0, len(a.WayIDs))
	for _, id := range a.WayIDs {
		e, err := g.Entity(id)
		if err != nil {
			return nil, NotEligible, true
		}
		w, ok := e.(*entity.Way)
		if !ok || w.IsArea() || w.IsDegenerate() {
			return nil, NotEligible, true
		}
		out = append(out, w)
	}
	return out, "", false
}

// chainWays orders ways into a single node sequence by repeatedly
// attaching the next way (reversed if needed) onto the chain's open
// end. Returns ok=false if the ways don't form one simple chain.
func chainWays(g *graph.Graph, ways []*entity.Way) ([]entity.ID, bool) {
	remaining := append([]*entity.Way(nil), ways...)
	chain := append([]entity.ID(nil), remaining[0].Nodes()...)
	remaining = remaining[1:]

	for len(remaining) > 0 {
		head, tail := chain[0], chain[len(chain)-1]
		progressed := false
		for i, w := range remaining {
			nodes := w.Nodes()
			switch {
			case nodes[0] == tail:
				chain = append(chain, nodes[1:]...)
			case nodes[len(nodes)-1] == tail:
				chain = append(chain, reverseIDs(nodes[:len(nodes)-1])...)
			case nodes[len(nodes)-1] == head:
				chain = append(reverseIDs(nodes[:len(nodes)-1]), chain...)
			case nodes[0] == head:
				chain = append(reverseIDs(nodes[1:]), chain...)
			default:
				continue
			}
			remaining = append(remaining[:i], remaining[i+1:]...)
			progressed = true
			break
		}
		if !progressed {
			return nil, false
		}
	}
	return chain, true
}

func reverseIDs(ids []entity.ID) []entity.ID {
	out := make([]entity.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func mergeNodeChain(chain []entity.ID) []entity.ID { return chain }

func relationDisabledCode(g *graph.Graph, w *entity.Way) (DisabledCode, bool) {
	rels, err := g.ParentRelations(w)
	if err != nil {
		return "", false
	}
	for _, r := range rels {
		if !r.IsRestriction() {
			continue
		}
		for _, role := range r.MemberRoles(w.ID()) {
			switch role {
			case "via":
				return Connectivity, true
			default:
				return Restriction, true
			}
		}
	}
	return "", false
}

// relationsAgreeOnJoin reports whether every relation touching any of
// the joined ways contains either all of them or none of them —
// joining would otherwise fork an ordered membership.
func relationsAgreeOnJoin(g *graph.Graph, ways []*entity.Way) bool {
	touching := map[entity.ID]int{}
	for _, w := range ways {
		rels, err := g.ParentRelations(w)
		if err != nil {
			continue
		}
		for _, r := range rels {
			touching[r.ID()]++
		}
	}
	for relID, count := range touching {
		if count > 0 && count != len(ways) {
			rel, err := g.Entity(relID)
			if err != nil {
				continue
			}
			if r, ok := rel.(*entity.Relation); ok && !r.IsRestriction() {
				return false
			}
		}
	}
	return true
}

func pathSelfIntersects(g *graph.Graph, chain []entity.ID) bool {
	pts := make([]entity.Loc, 0, len(chain))
	for _, id := range chain {
		e, ok := g.HasEntity(id)
		if !ok {
			return false // unresolved: geometry check can't run, don't block the join on it
		}
		n, ok := e.(*entity.Node)
		if !ok {
			return false
		}
		pts = append(pts, n.Loc())
	}
	for i := 0; i+1 < len(pts); i++ {
		for j := i + 2; j+1 < len(pts); j++ {
			if i == 0 && j+1 == len(pts)-1 {
				continue // shared chain endpoint, not a crossing
			}
			if segmentsIntersect(pts[i], pts[i+1], pts[j], pts[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(a, b, c, d entity.Loc) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b entity.Loc) float64 {
	return (a.Lon()-o.Lon())*(b.Lat()-o.Lat()) - (a.Lat()-o.Lat())*(b.Lon()-o.Lon())
}

// tagsJoinCleanly reports whether merging every way's tags key-wise
// produces no outright contradiction on a direction-sensitive key.
func tagsJoinCleanly(ways []*entity.Way) bool {
	var oneway string
	for _, w := range ways {
		v, ok := w.Tags()["oneway"]
		if !ok || v == "" {
			continue
		}
		if oneway == "" {
			oneway = v
			continue
		}
		if oneway != v {
			return false
		}
	}
	return true
}

func mergeTags(ways []*entity.Way) entity.Tags {
	out := entity.Tags{}
	for _, w := range ways {
		for k, v := range w.Tags() {
			existing, ok := out[k]
			switch {
			case !ok:
				out[k] = v
			case existing == v:
				// already present, nothing to do
			default:
				out[k] = existing + ";" + v
			}
		}
	}
	return out
}

// survivor picks the way to keep: an already-uploaded way (positive
// osmId) beats a new one; among equals the oldest (lowest osmId) wins.
func survivor(ways []*entity.Way) *entity.Way {
	best := ways[0]
	for _, w := range ways[1:] {
		bu, wu := !entity.IsNew(best.OSMID()), !entity.IsNew(w.OSMID())
		switch {
		case wu && !bu:
			best = w
		case wu == bu && w.OSMID() < best.OSMID():
			best = w
		}
	}
	return best
}

// Apply merges all ways into the survivor's id with the chained node
// sequence and merged tags, removes the other ways, and collapses any
// relation membership that contained every joined way into a single
// membership in the survivor.
func (a JoinAction) Apply(g *graph.Graph) (*graph.Graph, error) {
	ways, _, disabled := a.resolveWays(g)
	if disabled {
		return nil, fmt.Errorf("join: not eligible")
	}
	chain, ok := chainWays(g, ways)
	if !ok {
		return nil, fmt.Errorf("join: %v not adjacent", a.WayIDs)
	}

	surv := survivor(ways)
	mergedTags := mergeTags(ways)
	out := g.Derive()

	newSurv := surv.Update(chain, mergedTags)
	if err := out.Replace(newSurv); err != nil {
		return nil, err
	}

	var others []*entity.Way
	for _, w := range ways {
		if w.ID() != surv.ID() {
			others = append(others, w)
		}
	}

	touching := map[entity.ID]*entity.Relation{}
	for _, w := range ways {
		rels, err := out.ParentRelations(w)
		if err != nil {
			continue
		}
		for _, r := range rels {
			touching[r.ID()] = r
		}
	}
	for _, r := range touching {
		members := collapseMembership(r.Members(), ways, surv.ID())
		if err := out.Replace(r.Update(members, r.Tags())); err != nil {
			return nil, err
		}
	}

	entities := make([]entity.Entity, 0, len(others))
	for _, w := range others {
		entities = append(entities, w)
	}
	if len(entities) > 0 {
		if err := out.Remove(entities...); err != nil {
			return nil, err
		}
	}

	out.Commit()
	return out, nil
}

// collapseMembership replaces all members whose id is one of the joined
// ways with a single member pointing at the survivor, placed where the
// first such member was and keeping its role; later ones are dropped
// even when other members sit between them.
func collapseMembership(members []entity.Member, joined []*entity.Way, survID entity.ID) []entity.Member {
	joinedSet := map[entity.ID]bool{}
	for _, w := range joined {
		joinedSet[w.ID()] = true
	}
	out := make([]entity.Member, 0, len(members))
	collapsed := false
	for _, m := range members {
		if m.Type == entity.MemberWay && joinedSet[m.ID] {
			if collapsed {
				continue
			}
			out = append(out, entity.Member{ID: survID, Type: entity.MemberWay, Role: m.Role})
			collapsed = true
			continue
		}
		out = append(out, m)
	}
	return out
}
