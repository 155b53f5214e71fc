package entity

import "testing"

type fakeGraph struct {
	nodes map[ID]*Node
}

func (f *fakeGraph) HasEntity(id ID) (Entity, bool) {
	if n, ok := f.nodes[id]; ok {
		return n, true
	}
	return nil, false
}

func (f *fakeGraph) Entity(id ID) (Entity, error) {
	e, ok := f.HasEntity(id)
	if !ok {
		return nil, ErrNotFoundStub
	}
	return e, nil
}

// ErrNotFoundStub avoids importing graph (would cycle); tests only need a
// non-nil error.
var ErrNotFoundStub = &stubErr{"not found"}

type stubErr struct{ s string }

func (e *stubErr) Error() string { return e.s }

func newGraph(nodes ...*Node) *fakeGraph {
	g := &fakeGraph{nodes: map[ID]*Node{}}
	for _, n := range nodes {
		g.nodes[n.ID()] = n
	}
	return g
}

func TestWayClosedDegenerateArea(t *testing.T) {
	tests := []struct {
		name       string
		way        *Way
		closed     bool
		degenerate bool
		area       bool
	}{
		{"open line", NewWay("w1", []ID{"a", "b", "c"}, Tags{"highway": "residential"}), false, false, false},
		{"closed building", NewWay("w2", []ID{"a", "b", "c", "a"}, Tags{"building": "yes"}), true, false, true},
		{"closed non-area waterway", NewWay("w3", []ID{"a", "b", "c", "a"}, Tags{"waterway": "river"}), true, false, false},
		{"degenerate single node repeated", NewWay("w4", []ID{"a", "a"}, nil), true, true, false},
		{"area=no override", NewWay("w5", []ID{"a", "b", "c", "a"}, Tags{"building": "yes", "area": "no"}), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.way.IsClosed(); got != tt.closed {
				t.Errorf("IsClosed() = %v, want %v", got, tt.closed)
			}
			if got := tt.way.IsDegenerate(); got != tt.degenerate {
				t.Errorf("IsDegenerate() = %v, want %v", got, tt.degenerate)
			}
			if got := tt.way.IsArea(); got != tt.area {
				t.Errorf("IsArea() = %v, want %v", got, tt.area)
			}
		})
	}
}

func TestWayExtent(t *testing.T) {
	a := NewNode("a", Loc{0, 0}, nil)
	b := NewNode("b", Loc{2, 0}, nil)
	c := NewNode("c", Loc{4, 0}, nil)
	g := newGraph(a, b, c)

	w := NewWay("w", []ID{"a", "b", "c"}, nil)
	ext := w.Extent(g)
	if ext.MinX != 0 || ext.MaxX != 4 || ext.MinY != 0 || ext.MaxY != 0 {
		t.Errorf("extent = %+v", ext)
	}
}

func TestRelationSelfReferenceDoesNotLoop(t *testing.T) {
	r := NewRelation("r1", []Member{{ID: "r1", Type: MemberRelation, Role: ""}}, Tags{"type": "restriction"})
	g := &fakeGraph{nodes: map[ID]*Node{}}

	// A relation that is its own member must not infinite-loop; Extent
	// bounds recursion depth and simply returns an empty box.
	box := r.Extent(g)
	if !box.Empty() {
		t.Errorf("expected empty box for self-referential relation, got %+v", box)
	}
}

func TestRelationUniqueMemberIDs(t *testing.T) {
	r := NewRelation("r", []Member{
		{ID: "a", Type: MemberNode, Role: "from"},
		{ID: "a", Type: MemberNode, Role: "via"},
		{ID: "b", Type: MemberWay, Role: ""},
	}, nil)

	ids := r.UniqueMemberIDs()
	if len(ids) != 2 {
		t.Fatalf("UniqueMemberIDs() = %v, want 2 entries", ids)
	}
}

func TestRelationIsRestrictionAndMultipolygon(t *testing.T) {
	r1 := NewRelation("r1", nil, Tags{"type": "restriction:no_right_turn"})
	if !r1.IsRestriction() {
		t.Error("expected restriction")
	}
	r2 := NewRelation("r2", nil, Tags{"type": "multipolygon"})
	if !r2.IsMultipolygon() {
		t.Error("expected multipolygon")
	}
}

func TestTagsEqual(t *testing.T) {
	a := Tags{"a": "1", "b": "2"}
	b := Tags{"a": "1", "b": "2"}
	c := Tags{"a": "1"}
	if !a.Equal(b) {
		t.Error("expected equal")
	}
	if a.Equal(c) {
		t.Error("expected not equal")
	}
}

func TestBBoxUnionIntersects(t *testing.T) {
	a := BBox{0, 0, 1, 1}
	b := BBox{0.5, 0.5, 2, 2}
	u := a.Union(b)
	if u.MinX != 0 || u.MaxX != 2 {
		t.Errorf("union = %+v", u)
	}
	if !a.Intersects(b) {
		t.Error("expected intersect")
	}
	c := BBox{5, 5, 6, 6}
	if a.Intersects(c) {
		t.Error("expected no intersect")
	}
}
