package graph

import "github.com/osmgraph/core/entity"

// Incoming is one entity freshly downloaded from the network, destined
// for the shared base layer. Visible mirrors the OSM "visible" flag:
// an invisible entity is a server-side deletion notice and is skipped.
type Incoming struct {
	Entity  entity.Entity
	Visible bool
}

// Rebase merges newly downloaded baseline data underneath an existing
// stack of graphs without disturbing their local edits. It writes the
// new data into the shared base layer (common to every graph in stack,
// by construction). In the local overlays it only removes node
// tombstones that the new data resurrects, widens local parent sets to
// take in the new base parents, and stores recomputed geometry for the
// new ids in the head graph. Rebase is infallible: it reports nothing an ordinary
// caller needs to branch on, and is idempotent when force is false and
// called again with the same inputs.
//
// Returns the set of ids actually written to base (new data, or
// overwritten data when force is true) — the same set the EditSystem
// surfaces in its `merge` event.
func Rebase(incoming []Incoming, stack []*Graph, force bool) idSet {
	newIDs := idSet{}
	if len(stack) == 0 {
		return newIDs
	}
	base := stack[0].base

	sorted := make([]Incoming, len(incoming))
	copy(sorted, incoming)
	sortIncomingNodesFirst(sorted)

	for _, inc := range sorted {
		if !inc.Visible {
			continue
		}
		id := inc.Entity.ID()
		if !force {
			if _, exists := base.entities[id]; exists {
				continue
			}
		}
		prev := base.entities[id]
		base.entities[id] = inc.Entity
		base.updateTopology(id, prev, inc.Entity)
		newIDs[id] = struct{}{}
	}

	restoreIDs := resurrectionCandidates(sorted, newIDs, stack[len(stack)-1])

	for _, g := range stack {
		restoreTombstones(g, restoreIDs)
		reconcileLocalParents(g, topoWay)
		reconcileLocalParents(g, topoRel)
		g.v++
	}

	head := stack[len(stack)-1]
	for id := range newIDs {
		head.recomputeOne(id)
	}

	return newIDs
}

func sortIncomingNodesFirst(incoming []Incoming) {
	rankOf := func(inc Incoming) int { return rank(inc.Entity) }
	for i := 1; i < len(incoming); i++ {
		for j := i; j > 0 && rankOf(incoming[j]) < rankOf(incoming[j-1]); j-- {
			incoming[j], incoming[j-1] = incoming[j-1], incoming[j]
		}
	}
}

// resurrectionCandidates walks every newly-written way and collects any
// node id that is currently tombstoned in last's local overlay —
// deleted-node resurrection (spec §4.1 "Rebase", step 3).
func resurrectionCandidates(incoming []Incoming, newIDs idSet, last *Graph) idSet {
	restore := idSet{}
	for _, inc := range incoming {
		w, ok := inc.Entity.(*entity.Way)
		if !ok {
			continue
		}
		if _, isNew := newIDs[w.ID()]; !isNew {
			continue
		}
		for _, nid := range w.Nodes() {
			if le, ok := last.local.entities[nid]; ok && le.tomb {
				restore[nid] = struct{}{}
			}
		}
	}
	return restore
}

func restoreTombstones(g *Graph, restoreIDs idSet) {
	for id := range restoreIDs {
		if le, ok := g.local.entities[id]; ok && le.tomb {
			delete(g.local.entities, id)
		}
	}
}

// reconcileLocalParents extends every local parent-set override so it
// also includes base parents whose owning way/relation is not itself
// locally overridden — the freshly enlarged base may have added
// parents the overlay's frozen snapshot predates.
func reconcileLocalParents(g *Graph, kind topoKind) {
	local, base := g.indexMaps(kind)
	for childID, overrideSet := range local {
		baseSet := base[childID]
		if len(baseSet) == 0 {
			continue
		}
		var union idSet
		for ownerID := range baseSet {
			if _, overridden := g.local.entities[ownerID]; overridden {
				continue
			}
			if _, already := overrideSet[ownerID]; already {
				continue
			}
			if union == nil {
				union = cloneSet(overrideSet)
			}
			union[ownerID] = struct{}{}
		}
		if union != nil {
			local[childID] = union
		}
	}
}
