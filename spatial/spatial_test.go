package spatial

import "testing"

func box(id string, minX, minY, maxX, maxY float64) Item {
	return Item{ID: id, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY, Extent: true}
}

func TestGetCacheLazilyCreatesAndReuses(t *testing.T) {
	s := New()
	c1 := s.GetCache("c")
	c2 := s.GetCache("c")
	if c1 != c2 {
		t.Fatal("expected GetCache to return the same cache on repeated calls")
	}
}

func TestClearCacheEmptiesEverything(t *testing.T) {
	s := New()
	s.AddData("c", box("a", 0, 0, 1, 1))
	s.AddTiles("c", Tile{ID: "t", MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})

	s.ClearCache("c")

	if s.HasData("c", "a") {
		t.Error("expected data cleared")
	}
	if s.HasTile("c", "t") {
		t.Error("expected tile cleared")
	}
	if len(s.GetVisibleData("c")) != 0 {
		t.Error("expected no visible data after clear")
	}
}

// TestReplaceDataThenGetAtBoxFindsIt is property P7's replaceData half:
// immediately after replaceData(c, x), getDataAtBox(c, x.bbox()) contains x.id.
func TestReplaceDataThenGetAtBoxFindsIt(t *testing.T) {
	s := New()
	x := box("n-1", 10, 10, 12, 12)
	s.ReplaceData("c", x)

	found := s.GetDataAtBox("c", 10, 10, 12, 12)
	if !containsID(found, "n-1") {
		t.Fatalf("expected n-1 in %v", found)
	}
}

// TestRemoveDataThenGetAtBoxOmitsIt is property P7's removeData half.
func TestRemoveDataThenGetAtBoxOmitsIt(t *testing.T) {
	s := New()
	x := box("n-1", 10, 10, 12, 12)
	s.ReplaceData("c", x)
	s.RemoveData("c", "n-1")

	found := s.GetDataAtBox("c", 10, 10, 12, 12)
	if containsID(found, "n-1") {
		t.Fatalf("expected n-1 absent after removeData, got %v", found)
	}
	if s.HasData("c", "n-1") {
		t.Error("expected HasData false after removeData")
	}
}

func TestReplaceDataIsIdempotentUpsert(t *testing.T) {
	s := New()
	s.ReplaceData("c", box("n-1", 0, 0, 1, 1))
	s.ReplaceData("c", box("n-1", 5, 5, 6, 6))

	if len(s.GetVisibleData("c")) != 1 {
		t.Fatalf("expected exactly one data item after re-replace, got %d", len(s.GetVisibleData("c")))
	}
	found := s.GetDataAtBox("c", 5, 5, 6, 6)
	if !containsID(found, "n-1") {
		t.Error("expected n-1 reindexed at its new extent")
	}
	stale := s.GetDataAtBox("c", 0, 0, 1, 1)
	if containsID(stale, "n-1") {
		t.Error("expected n-1 not findable at its old extent anymore")
	}
}

func TestReplaceDataIgnoresItemsWithNoExtent(t *testing.T) {
	s := New()
	s.ReplaceData("c", Item{ID: "n-1", Extent: false})

	if s.HasData("c", "n-1") {
		t.Error("expected no-extent item to be ignored")
	}
}

func TestAddTilesIsInsertOnly(t *testing.T) {
	s := New()
	s.AddTiles("c", Tile{ID: "t-1", MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	s.AddTiles("c", Tile{ID: "t-1", MinX: 9, MinY: 9, MaxX: 10, MaxY: 10})

	got, ok := s.GetTile("c", "t-1")
	if !ok {
		t.Fatal("expected t-1 present")
	}
	if got.MaxX != 1 {
		t.Errorf("expected the first insert to win, got MaxX=%v", got.MaxX)
	}
}

func TestRemoveTilesRemovesByID(t *testing.T) {
	s := New()
	s.AddTiles("c", Tile{ID: "t-1", MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	s.RemoveTiles("c", "t-1")

	if s.HasTile("c", "t-1") {
		t.Error("expected t-1 removed")
	}
}

func TestHasTileAtLocFindsCoveringTile(t *testing.T) {
	s := New()
	s.AddTiles("c", Tile{ID: "t-1", MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})

	if !s.HasTileAtLoc("c", 5, 5) {
		t.Error("expected (5,5) covered by t-1")
	}
	if s.HasTileAtLoc("c", 50, 50) {
		t.Error("expected (50,50) not covered by any tile")
	}
}

// TestPreventCoincidentLocReturnsClearPoint is property P8:
// preventCoincidentLoc(c, p) returns p' such that !hasDataAtLoc(c, p').
func TestPreventCoincidentLocReturnsClearPoint(t *testing.T) {
	s := New()
	s.AddData("c", box("n-1", 1, 1, 1, 1))

	x, y := s.PreventCoincidentLoc("c", 1, 1)
	if s.HasDataAtLoc("c", x, y) {
		t.Fatalf("expected (%v, %v) clear of collisions", x, y)
	}
}

// TestPreventCoincidentLocStepsByCoincidenceStep is spec scenario 6: the
// returned point is (x, y+k*1e-5) for the smallest k>=1 clearing the
// ε-box collision test.
func TestPreventCoincidentLocStepsByCoincidenceStep(t *testing.T) {
	s := New()
	step := s.coincidenceStep
	s.AddData("c", box("n-1", 1, 1, 1, 1))
	s.AddData("c", box("n-2", 1, 1+step, 1, 1+step))

	x, y := s.PreventCoincidentLoc("c", 1, 1)
	wantY := 1 + 2*step
	if x != 1 || y != wantY {
		t.Errorf("PreventCoincidentLoc = (%v, %v), want (1, %v)", x, y, wantY)
	}
}

func TestPreventCoincidentLocNoOpWhenAlreadyClear(t *testing.T) {
	s := New()
	x, y := s.PreventCoincidentLoc("c", 3, 4)
	if x != 3 || y != 4 {
		t.Errorf("PreventCoincidentLoc = (%v, %v), want (3, 4) unchanged", x, y)
	}
}

func TestCachesAreIndependent(t *testing.T) {
	s := New()
	s.AddData("a", box("n-1", 0, 0, 1, 1))

	if s.HasData("b", "n-1") {
		t.Error("expected cache b unaffected by writes to cache a")
	}
}

func containsID(items []Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
