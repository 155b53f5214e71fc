package actions

import (
	"fmt"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

// ConnectAction merges two or more nodes into a single survivor node,
// rewriting every way and relation that referenced a non-survivor.
type ConnectAction struct {
	NodeIDs []entity.ID
}

var _ Action = ConnectAction{}

func (a ConnectAction) resolveNodes(g *graph.Graph) ([]*entity.Node, bool) {
	if len(a.NodeIDs) < 2 {
		return nil, false
	}
	out := make([]*entity.Node, 0, len(a.NodeIDs))
	for _, id := range a.NodeIDs {
		e, err := g.Entity(id)
		if err != nil {
			return nil, false
		}
		n, ok := e.(*entity.Node)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// connectSurvivor is the first node in the list that has already been
// uploaded (positive osmId), else the last node in the list.
func connectSurvivor(nodes []*entity.Node) *entity.Node {
	for _, n := range nodes {
		if !entity.IsNew(n.OSMID()) {
			return n
		}
	}
	return nodes[len(nodes)-1]
}

// Disabled implements the restriction/relation checks from the spec:
// merging must not destroy a restriction-participating way, add an
// extra connection to a restriction's via node/way, link from/to
// through anything but an allowed u-turn, or merge two nodes that
// share a relation membership with different roles.
func (a ConnectAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	nodes, ok := a.resolveNodes(g)
	if !ok {
		return NotEligible, true
	}

	ids := map[entity.ID]bool{}
	for _, n := range nodes {
		ids[n.ID()] = true
	}

	relMembership := map[entity.ID]map[string]bool{} // relID -> roles seen across the merge set
	for _, n := range nodes {
		rels, err := g.ParentRelations(n)
		if err != nil {
			continue
		}
		for _, r := range rels {
			if relMembership[r.ID()] == nil {
				relMembership[r.ID()] = map[string]bool{}
			}
			for _, role := range r.MemberRoles(n.ID()) {
				relMembership[r.ID()][role] = true
			}
			if r.IsRestriction() {
				if code, disabled := restrictionDisabledCode(r, n, ids); disabled {
					return code, true
				}
			}
		}
	}

	for relID, roles := range relMembership {
		if len(roles) > 1 {
			if rel, err := g.Entity(relID); err == nil {
				if r, ok := rel.(*entity.Relation); ok && !r.IsRestriction() {
					return RelationCode, true
				}
			}
		}
	}

	for _, w := range wayParentsOfAny(g, nodes) {
		if collapsesWay(w, ids) {
			if code, disabled := relationDisabledCode(g, w); disabled {
				return code, true
			}
		}
	}

	return "", false
}

// restrictionDisabledCode applies rule (b) and (c) for a single
// restriction relation r that node n (one of the merge set) belongs to.
func restrictionDisabledCode(r *entity.Relation, n *entity.Node, mergeSet map[entity.ID]bool) (DisabledCode, bool) {
	role := ""
	for _, m := range r.Members() {
		if m.ID == n.ID() {
			role = m.Role
			break
		}
	}
	switch role {
	case "via":
		// Rule (b): merging anything into the via node adds an extra
		// connection to it unless every other merging id is itself
		// already a member of this same relation (a true no-op merge).
		for id := range mergeSet {
			if id == n.ID() {
				continue
			}
			isMember := false
			for _, m := range r.Members() {
				if m.ID == id {
					isMember = true
					break
				}
			}
			if !isMember {
				return Restriction, true
			}
		}
	case "from", "to":
		// Rule (c): linking from/to members directly together is only
		// safe as an explicit u-turn, which this representative
		// implementation does not model — treat as unsafe.
		for id := range mergeSet {
			if id == n.ID() {
				continue
			}
			for _, m := range r.Members() {
				if m.ID == id && (m.Role == "from" || m.Role == "to") && m.Role != role {
					return Restriction, true
				}
			}
		}
	}
	return "", false
}

func wayParentsOfAny(g *graph.Graph, nodes []*entity.Node) []*entity.Way {
	seen := map[entity.ID]*entity.Way{}
	for _, n := range nodes {
		ways, err := g.ParentWays(n)
		if err != nil {
			continue
		}
		for _, w := range ways {
			seen[w.ID()] = w
		}
	}
	out := make([]*entity.Way, 0, len(seen))
	for _, w := range seen {
		out = append(out, w)
	}
	return out
}

// collapsesWay reports whether w references more than one of the given
// node ids, so that merging them folds w onto itself. The nodes need
// not be adjacent in w's node sequence.
func collapsesWay(w *entity.Way, mergeSet map[entity.ID]bool) bool {
	nodes := w.Nodes()
	count := 0
	for _, id := range nodes {
		if mergeSet[id] {
			count++
		}
	}
	return count > 1
}

// Apply rewrites every way and relation referencing a non-survivor
// node to reference the survivor instead, collapsing any resulting
// adjacent duplicate in a way's node list, then removes the merged
// nodes.
func (a ConnectAction) Apply(g *graph.Graph) (*graph.Graph, error) {
	nodes, ok := a.resolveNodes(g)
	if !ok {
		return nil, fmt.Errorf("connect: not eligible")
	}
	surv := connectSurvivor(nodes)
	ids := map[entity.ID]bool{}
	for _, n := range nodes {
		if n.ID() != surv.ID() {
			ids[n.ID()] = true
		}
	}

	out := g.Derive()

	for _, w := range wayParentsOfAny(out, nodes) {
		newNodes := make([]entity.ID, 0, len(w.Nodes()))
		for _, id := range w.Nodes() {
			if ids[id] {
				id = surv.ID()
			}
			if len(newNodes) > 0 && newNodes[len(newNodes)-1] == id {
				continue // collapse the adjacent duplicate the merge just created
			}
			newNodes = append(newNodes, id)
		}
		if err := out.Replace(w.Update(newNodes, w.Tags())); err != nil {
			return nil, err
		}
	}

	touchedRels := map[entity.ID]*entity.Relation{}
	for _, n := range nodes {
		rels, err := out.ParentRelations(n)
		if err != nil {
			continue
		}
		for _, r := range rels {
			touchedRels[r.ID()] = r
		}
	}
	for _, r := range touchedRels {
		members := make([]entity.Member, len(r.Members()))
		for i, m := range r.Members() {
			if ids[m.ID] {
				m.ID = surv.ID()
			}
			members[i] = m
		}
		if err := out.Replace(r.Update(members, r.Tags())); err != nil {
			return nil, err
		}
	}

	toRemove := make([]entity.Entity, 0, len(ids))
	for _, n := range nodes {
		if ids[n.ID()] {
			toRemove = append(toRemove, n)
		}
	}
	if len(toRemove) > 0 {
		if err := out.Remove(toRemove...); err != nil {
			return nil, err
		}
	}

	out.Commit()
	return out, nil
}
