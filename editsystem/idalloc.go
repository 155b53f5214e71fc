package editsystem

import "fmt"

// IDKind discriminates the three id counters the persisted format
// tracks separately (nextIDs.node / .way / .relation in the spec's v3
// JSON). A changeset/graph counter is a collaborator concern (OSM API
// session state) and is not modeled here.
type IDKind int

const (
	IDKindNode IDKind = iota
	IDKindWay
	IDKindRelation
)

// idAllocator hands out negative ids ("n-1", "n-2", ...) for
// not-yet-uploaded entities from a strictly increasing counter per
// kind, matching the "new" id convention entity.IsNew relies on.
type idAllocator struct {
	next [3]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{next: [3]int{1, 1, 1}}
}

// Next returns the next negative id for kind and advances its counter.
func (a *idAllocator) Next(kind IDKind) string {
	n := a.next[kind]
	a.next[kind]++
	prefix := [3]string{"n", "w", "r"}[kind]
	return fmt.Sprintf("%s-%d", prefix, n)
}

// seed restores a counter from a persisted value, converting a legacy
// negative value to its absolute form per the spec's compatibility note.
func (a *idAllocator) seed(kind IDKind, v int) {
	if v < 0 {
		v = -v
	}
	a.next[kind] = v
}

func (a *idAllocator) snapshot() map[string]int {
	return map[string]int{
		"node":     a.next[IDKindNode],
		"way":      a.next[IDKindWay],
		"relation": a.next[IDKindRelation],
	}
}
