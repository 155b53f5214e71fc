package actions

import (
	"testing"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

func setup() (*graph.Graph, func(...entity.Entity)) {
	base := graph.NewBase()
	g := base.Derive()
	put := func(es ...entity.Entity) {
		if err := g.Replace(es...); err != nil {
			panic(err)
		}
	}
	return g, put
}

// TestJoinTwoWaysSharingEndpoint is scenario 1 from the spec.
func TestJoinTwoWaysSharingEndpoint(t *testing.T) {
	g, put := setup()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{2, 0}, nil)
	c := entity.NewNode("c", entity.Loc{4, 0}, nil)
	w1 := entity.NewWay("-", []entity.ID{"a", "b"}, nil)
	w2 := entity.NewWay("=", []entity.ID{"b", "c"}, nil)
	put(a, b, c, w1, w2)

	act := JoinAction{WayIDs: []entity.ID{"-", "="}}
	if code, disabled := act.Disabled(g); disabled {
		t.Fatalf("expected join enabled, got disabled(%s)", code)
	}

	out, err := act.Apply(g)
	if err != nil {
		t.Fatal(err)
	}

	surv, ok := out.HasEntity("-")
	if !ok {
		t.Fatal("expected survivor way '-' present")
	}
	nodes := surv.(*entity.Way).Nodes()
	if len(nodes) != 3 || nodes[0] != "a" || nodes[1] != "b" || nodes[2] != "c" {
		t.Errorf("survivor nodes = %v, want [a b c]", nodes)
	}
	if _, ok := out.HasEntity("="); ok {
		t.Error("expected '=' absent after join")
	}
}

// TestReverseWithTagReversal is scenario 2 from the spec.
func TestReverseWithTagReversal(t *testing.T) {
	g, put := setup()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("-", []entity.ID{"a", "b"}, entity.Tags{"cycleway:right": "lane"})
	put(a, b, w)

	act := ReverseAction{WayID: "-"}
	out, err := act.Apply(g)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := out.HasEntity("-")
	way := got.(*entity.Way)
	if way.Nodes()[0] != "b" || way.Nodes()[1] != "a" {
		t.Errorf("nodes = %v, want [b a]", way.Nodes())
	}
	if way.Tags()["cycleway:left"] != "lane" {
		t.Errorf("tags = %v, want cycleway:left=lane", way.Tags())
	}
}

// TestReverseInvolution is property P6.
func TestReverseInvolution(t *testing.T) {
	g, put := setup()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("-", []entity.ID{"a", "b"}, entity.Tags{"cycleway:right": "lane", "incline": "10%"})
	put(a, b, w)

	act := ReverseAction{WayID: "-"}
	once, err := act.Apply(g)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := act.Apply(once)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := twice.HasEntity("-")
	way := got.(*entity.Way)
	if way.Nodes()[0] != "a" || way.Nodes()[1] != "b" {
		t.Errorf("double reverse nodes = %v, want [a b]", way.Nodes())
	}
	if way.Tags()["cycleway:right"] != "lane" {
		t.Errorf("double reverse tags = %v, want cycleway:right=lane", way.Tags())
	}
	if way.Tags()["incline"] != "10%" {
		t.Errorf("double reverse incline = %v, want 10%%", way.Tags())
	}
}

// TestConnectViolatesRestriction is scenario 3 from the spec.
func TestConnectViolatesRestriction(t *testing.T) {
	g, put := setup()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	c := entity.NewNode("c", entity.Loc{2, 0}, nil)
	d := entity.NewNode("d", entity.Loc{3, 0}, nil)
	e := entity.NewNode("e", entity.Loc{4, 0}, nil)
	wFrom := entity.NewWay("-", []entity.ID{"a", "b", "c"}, nil)
	wTo := entity.NewWay("|", []entity.ID{"c", "d", "e"}, nil)
	rel := entity.NewRelation("r1", []entity.Member{
		{ID: "-", Type: entity.MemberWay, Role: "from"},
		{ID: "c", Type: entity.MemberNode, Role: "via"},
		{ID: "|", Type: entity.MemberWay, Role: "to"},
	}, entity.Tags{"type": "restriction", "restriction": "no_right_turn"})
	put(a, b, c, d, e, wFrom, wTo, rel)

	act := ConnectAction{NodeIDs: []entity.ID{"a", "c"}}
	code, disabled := act.Disabled(g)
	if !disabled {
		t.Fatal("expected connect to be disabled")
	}
	if code != Restriction {
		t.Errorf("disabled code = %q, want restriction", code)
	}
}

func TestDeleteNodeCascadesDegenerateWay(t *testing.T) {
	g, put := setup()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("w", []entity.ID{"a", "b"}, nil)
	put(a, b, w)

	act := DeleteAction{IDs: []entity.ID{"b"}}
	out, err := act.Apply(g)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.HasEntity("w"); ok {
		t.Error("expected way deleted once degenerate")
	}
	if _, ok := out.HasEntity("b"); ok {
		t.Error("expected node b deleted")
	}
}

func TestCircularizeMovesUnsharedNodesOntoPolygon(t *testing.T) {
	g, put := setup()
	// A lopsided quadrilateral, closed.
	a := entity.NewNode("a", entity.Loc{1, 0}, nil)
	b := entity.NewNode("b", entity.Loc{0, 3}, nil)
	c := entity.NewNode("c", entity.Loc{-1, 0}, nil)
	d := entity.NewNode("d", entity.Loc{0, -1}, nil)
	w := entity.NewWay("w", []entity.ID{"a", "b", "c", "d", "a"}, nil)
	put(a, b, c, d, w)

	act := CircularizeAction{WayID: "w", MaxAngle: 90}
	if code, disabled := act.Disabled(g); disabled {
		t.Fatalf("expected circularize enabled, got %s", code)
	}
	out, err := act.Apply(g)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := out.HasEntity("w")
	way := got.(*entity.Way)
	if way.IsDegenerate() {
		t.Fatal("expected way to remain non-degenerate after circularize")
	}
}
