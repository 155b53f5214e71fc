package graph

import "github.com/osmgraph/core/entity"

// topoKind selects which of the two parent indices an operation targets.
type topoKind int

const (
	topoWay topoKind = iota
	topoRel
)

// parentSet resolves childID's parent set for the given index,
// local-wins-base: a local set, if present, entirely replaces the base
// set (it is a full snapshot taken at first modification, not a delta).
func (g *Graph) parentSet(kind topoKind, childID entity.ID) idSet {
	local, base := g.indexMaps(kind)
	if s, ok := local[childID]; ok {
		return s
	}
	return base[childID]
}

func (g *Graph) indexMaps(kind topoKind) (local, base map[entity.ID]idSet) {
	if kind == topoWay {
		return g.local.parentWays, g.base.parentWays
	}
	return g.local.parentRels, g.base.parentRels
}

// setParent clones the current local-wins-base parent set for childID,
// adds or removes selfID, and stores the clone as the local overlay's
// new full snapshot for that child.
func (g *Graph) setParent(kind topoKind, childID, selfID entity.ID, add bool) {
	local, _ := g.indexMaps(kind)
	cur := g.parentSet(kind, childID)
	clone := make(idSet, len(cur)+1)
	for id := range cur {
		clone[id] = struct{}{}
	}
	if add {
		clone[selfID] = struct{}{}
	} else {
		delete(clone, selfID)
	}
	local[childID] = clone
}

// refsOf returns the topology kind and de-duplicated child ids an
// entity references: a way's unique node ids, or a relation's unique
// member ids. Non-way/relation entities (including a nil/absent value)
// return ok=false.
func refsOf(e entity.Entity) (kind topoKind, refs []entity.ID, ok bool) {
	switch v := e.(type) {
	case *entity.Way:
		return topoWay, v.UniqueNodeIDs(), true
	case *entity.Relation:
		return topoRel, v.UniqueMemberIDs(), true
	default:
		return 0, nil, false
	}
}

// diffRefs computes removed = prev \ curr and added = curr \ prev.
func diffRefs(prev, curr []entity.ID) (removed, added []entity.ID) {
	prevSet := make(idSet, len(prev))
	for _, id := range prev {
		prevSet[id] = struct{}{}
	}
	currSet := make(idSet, len(curr))
	for _, id := range curr {
		currSet[id] = struct{}{}
	}
	for id := range prevSet {
		if _, ok := currSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	for id := range currSet {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	return removed, added
}

// updateTopology is the core algorithm (spec §4.1 "Topology
// maintenance"): whenever selfID's value changes from prev to curr,
// recompute the ref delta and update every affected child's parent set
// in this graph's local overlay.
func (g *Graph) updateTopology(selfID entity.ID, prev, curr entity.Entity) {
	prevKind, prevRefs, prevOK := refsOf(prev)
	currKind, currRefs, currOK := refsOf(curr)
	if !prevOK && !currOK {
		return
	}
	kind := currKind
	if !currOK {
		kind = prevKind
	}
	removed, added := diffRefs(prevRefs, currRefs)
	for _, childID := range removed {
		g.setParent(kind, childID, selfID, false)
	}
	for _, childID := range added {
		g.setParent(kind, childID, selfID, true)
	}
}

// baseLayer.updateTopology is Graph.updateTopology's counterpart for Rebase, which
// writes directly into the shared base layer's indices rather than an
// overlay. Base topology has no "local wins" composition — it is read
// and written directly.
func (b *baseLayer) updateTopology(selfID entity.ID, prev, curr entity.Entity) {
	prevKind, prevRefs, prevOK := refsOf(prev)
	currKind, currRefs, currOK := refsOf(curr)
	if !prevOK && !currOK {
		return
	}
	kind := currKind
	if !currOK {
		kind = prevKind
	}
	var idx map[entity.ID]idSet
	if kind == topoWay {
		idx = b.parentWays
	} else {
		idx = b.parentRels
	}
	removed, added := diffRefs(prevRefs, currRefs)
	for _, childID := range removed {
		clone := cloneSet(idx[childID])
		delete(clone, selfID)
		idx[childID] = clone
	}
	for _, childID := range added {
		clone := cloneSet(idx[childID])
		clone[selfID] = struct{}{}
		idx[childID] = clone
	}
}

func cloneSet(s idSet) idSet {
	out := make(idSet, len(s)+1)
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
