package graph

import (
	"testing"

	"github.com/osmgraph/core/entity"
)

func TestLocalWinsBase(t *testing.T) {
	base := NewBase()
	staging := base.Derive()

	n := entity.NewNode("n1", entity.Loc{0, 0}, nil)
	if err := staging.Replace(n); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// A further derived graph's own edit must win over the edit it
	// inherited from staging.
	head := staging.Derive()
	moved := entity.NewNode("n1", entity.Loc{1, 1}, nil).Update(entity.Loc{1, 1}, true, nil)
	if err := head.Replace(moved); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, ok := head.HasEntity("n1")
	if !ok {
		t.Fatal("expected n1 present")
	}
	if got.(*entity.Node).Loc() != (entity.Loc{1, 1}) {
		t.Errorf("expected local override to win, got %+v", got)
	}
}

func TestTombstoneIsAbsent(t *testing.T) {
	base := NewBase()
	g := base.Derive()

	n := entity.NewNode("n1", entity.Loc{0, 0}, nil)
	_ = g.Replace(n)
	g2 := g.Derive()
	_ = g2.Remove(n)

	if _, ok := g2.HasEntity("n1"); ok {
		t.Error("expected n1 absent after remove")
	}
	if _, err := g2.Entity("n1"); err == nil {
		t.Error("expected NotFound error")
	}
}

func TestBaseGraphRejectsMutation(t *testing.T) {
	base := NewBase()
	n := entity.NewNode("n1", entity.Loc{0, 0}, nil)
	if err := base.Replace(n); err != ErrInvariant {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

// TestTopologySymmetry is property P1: if a way references a node, the
// node's parentWays must contain the way, and conversely.
func TestTopologySymmetry(t *testing.T) {
	base := NewBase()
	g := base.Derive()

	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("w1", []entity.ID{"a", "b"}, nil)
	if err := g.Replace(a, b, w); err != nil {
		t.Fatal(err)
	}

	parents, err := g.ParentWays(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 1 || parents[0].ID() != "w1" {
		t.Errorf("parentWays(a) = %v, want [w1]", parents)
	}

	// Remove the way: parentWays(a) must become empty (I1/I3).
	g2 := g.Derive()
	_ = g2.Remove(w)
	parents2, err := g2.ParentWays(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents2) != 0 {
		t.Errorf("expected no parents after removing way, got %v", parents2)
	}
}

func TestReplaceNoopOnIdenticalPointer(t *testing.T) {
	base := NewBase()
	g := base.Derive()
	n := entity.NewNode("n1", entity.Loc{0, 0}, nil)
	_ = g.Replace(n)
	vBefore := g.Version()
	_ = g.Replace(n) // same pointer again
	if g.Version() != vBefore+1 {
		// Version still increases once per Replace call even when every
		// entity inside is a no-op; only the per-entity topology/dirty
		// work is skipped.
		t.Errorf("version = %d, want %d", g.Version(), vBefore+1)
	}
	got, _ := g.HasEntity("n1")
	if got != entity.Entity(n) {
		t.Errorf("expected same pointer retained")
	}
}

func TestRevertRestoresBaseView(t *testing.T) {
	base := NewBase()
	staging0 := base.Derive()
	baseNode := entity.NewNode("n1", entity.Loc{0, 0}, nil)
	// Simulate network-loaded base data via Rebase.
	Rebase([]Incoming{{Entity: baseNode, Visible: true}}, []*Graph{staging0}, false)

	edited := baseNode.Update(entity.Loc{5, 5}, true, nil)
	_ = staging0.Replace(edited)

	got, _ := staging0.HasEntity("n1")
	if got.(*entity.Node).Loc() != (entity.Loc{5, 5}) {
		t.Fatalf("expected edited loc, got %+v", got)
	}

	_ = staging0.Revert("n1")
	got2, _ := staging0.HasEntity("n1")
	if got2.(*entity.Node).Loc() != (entity.Loc{0, 0}) {
		t.Errorf("expected base loc after revert, got %+v", got2)
	}
}

// TestRebaseResurrectsDeletedNode is scenario 5 from the spec.
func TestRebaseResurrectsDeletedNode(t *testing.T) {
	base := NewBase()
	g := base.Derive()

	n := entity.NewNode("n", entity.Loc{0, 0}, nil)
	Rebase([]Incoming{{Entity: n, Visible: true}}, []*Graph{g}, false)

	_ = g.Remove(n) // tombstones n locally

	if _, ok := g.HasEntity("n"); ok {
		t.Fatal("expected n tombstoned")
	}

	w := entity.NewWay("w", []entity.ID{"n"}, nil)
	newIDs := Rebase([]Incoming{{Entity: w, Visible: true}}, []*Graph{g}, false)

	if _, ok := newIDs["w"]; !ok {
		t.Fatal("expected w in newIDs")
	}

	if _, ok := g.HasEntity("n"); !ok {
		t.Error("expected n resurrected (tombstone removed)")
	}

	parents, err := g.ParentWays(n)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 1 || parents[0].ID() != "w" {
		t.Errorf("parentWays(n) = %v, want [w]", parents)
	}
}

// TestRebaseIdempotentWithoutForce is part of property P3.
func TestRebaseIdempotentWithoutForce(t *testing.T) {
	base := NewBase()
	g := base.Derive()
	n := entity.NewNode("n", entity.Loc{0, 0}, nil)

	Rebase([]Incoming{{Entity: n, Visible: true}}, []*Graph{g}, false)
	n2 := entity.NewNode("n", entity.Loc{9, 9}, nil)
	Rebase([]Incoming{{Entity: n2, Visible: true}}, []*Graph{g}, false)

	got, _ := g.HasEntity("n")
	if got.(*entity.Node).Loc() != (entity.Loc{0, 0}) {
		t.Errorf("expected original base data preserved without force, got %+v", got)
	}
}

func TestRebaseForceOverwrites(t *testing.T) {
	base := NewBase()
	g := base.Derive()
	n := entity.NewNode("n", entity.Loc{0, 0}, nil)
	Rebase([]Incoming{{Entity: n, Visible: true}}, []*Graph{g}, false)

	n2 := entity.NewNode("n", entity.Loc{9, 9}, nil)
	Rebase([]Incoming{{Entity: n2, Visible: true}}, []*Graph{g}, true)

	got, _ := g.HasEntity("n")
	if got.(*entity.Node).Loc() != (entity.Loc{9, 9}) {
		t.Errorf("expected forced overwrite, got %+v", got)
	}
}

func TestChildNodesPositional(t *testing.T) {
	base := NewBase()
	g := base.Derive()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("w", []entity.ID{"b", "a"}, nil)
	_ = g.Replace(a, b, w)

	nodes, err := g.ChildNodes(w)
	if err != nil {
		t.Fatal(err)
	}
	if nodes[0].ID() != "b" || nodes[1].ID() != "a" {
		t.Errorf("ChildNodes order = %v", nodes)
	}
}

func TestGeometryRecomputeOnCommit(t *testing.T) {
	base := NewBase()
	g := base.Derive()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{4, 0}, nil)
	w := entity.NewWay("w", []entity.ID{"a", "b"}, nil)
	_ = g.Replace(a, b, w)
	g.Commit()

	got, _ := g.HasEntity("w")
	way := got.(*entity.Way)
	ext := way.CachedExtent()
	if ext.MaxX != 4 {
		t.Errorf("CachedExtent after commit = %+v", ext)
	}

	// Moving a's node must, on the next commit, refresh w's geometry.
	moved := a.Update(entity.Loc{-10, 0}, true, nil)
	_ = g.Replace(moved)
	g.Commit()

	got2, _ := g.HasEntity("w")
	ext2 := got2.(*entity.Way).CachedExtent()
	if ext2.MinX != -10 {
		t.Errorf("CachedExtent after node move = %+v", ext2)
	}
}
