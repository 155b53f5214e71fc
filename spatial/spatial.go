// Package spatial implements the SpatialSystem: a collection of named,
// independent bounding-box R-tree caches, each indexing both data
// items (anything with a world-space extent) and tiles (loaded-region
// markers).
//
// This mirrors the teacher's apoc/spatial package one level up: where
// apoc/spatial indexes a live storage.Storage's nodes by distance,
// SpatialSystem indexes arbitrary caller-supplied items by bounding
// box, using github.com/tidwall/rtree for the actual index structure.
package spatial

import (
	"math"

	"github.com/tidwall/rtree"

	"github.com/osmgraph/core/config"
)

// Item is anything a Cache can index: an id and a world-space extent.
type Item struct {
	ID     string
	MinX   float64
	MinY   float64
	MaxX   float64
	MaxY   float64
	Extent bool // false means "no extent": addData/replaceData ignores it
}

func (it Item) min() [2]float64 { return [2]float64{it.MinX, it.MinY} }
func (it Item) max() [2]float64 { return [2]float64{it.MaxX, it.MaxY} }

// Tile is a loaded-region marker, indexed the same way as a data item
// in its own R-tree and tile map. Tiles share the byID map with data
// items, so a tile id must not equal any data id in the same cache.
type Tile struct {
	ID   string
	MinX, MinY, MaxX, MaxY float64
}

func (tl Tile) min() [2]float64 { return [2]float64{tl.MinX, tl.MinY} }
func (tl Tile) max() [2]float64 { return [2]float64{tl.MaxX, tl.MaxY} }

// Cache is one named R-tree index pair plus its id->box/by-id maps.
type Cache struct {
	tileIndex rtree.RTree[string]
	dataIndex rtree.RTree[string]
	byID      map[string][2][2]float64 // id -> (min, max), data and tiles share this keyspace by construction
	tiles     map[string]Tile
	data      map[string]Item
}

func newCache() *Cache {
	return &Cache{
		byID:  map[string][2][2]float64{},
		tiles: map[string]Tile{},
		data:  map[string]Item{},
	}
}

// System is a collection of independent named caches.
type System struct {
	caches map[string]*Cache

	// locEpsilon is the half-width of the box getDataAtLoc/hasDataAtLoc
	// search around a point. coincidenceStep is the y-increment
	// preventCoincidentLoc retries at. Both default from
	// config.SpatialConfig and are overridable via SetSpatialTuning.
	locEpsilon      float64
	coincidenceStep float64
}

// New constructs an empty SpatialSystem, tuned from
// config.LoadFromEnv().Spatial.
func New() *System {
	sp := config.LoadFromEnv().Spatial
	return &System{
		caches:          map[string]*Cache{},
		locEpsilon:      sp.LocEpsilon,
		coincidenceStep: sp.CoincidenceStep,
	}
}

// SetSpatialTuning overrides the System's locEpsilon/coincidenceStep,
// e.g. to share a single config.Config across an application's
// SpatialSystem and EditSystem instead of each re-reading the
// environment independently.
func (s *System) SetSpatialTuning(locEpsilon, coincidenceStep float64) {
	s.locEpsilon = locEpsilon
	s.coincidenceStep = coincidenceStep
}

// GetCache lazily creates and returns the named Cache.
func (s *System) GetCache(cacheID string) *Cache {
	c, ok := s.caches[cacheID]
	if !ok {
		c = newCache()
		s.caches[cacheID] = c
	}
	return c
}

// ClearCache empties all three maps and both R-trees for cacheID.
func (s *System) ClearCache(cacheID string) {
	s.caches[cacheID] = newCache()
}

// AddData is an alias for ReplaceData: both are idempotent upserts.
func (s *System) AddData(cacheID string, items ...Item) { s.ReplaceData(cacheID, items...) }

// ReplaceData idempotently upserts one or more data items. An item
// with no extent is ignored. Batches of more than one item go through
// bulkInsert, which still inserts them into the index one at a time.
func (s *System) ReplaceData(cacheID string, items ...Item) {
	c := s.GetCache(cacheID)
	toInsert := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Extent {
			continue
		}
		if box, ok := c.byID[it.ID]; ok {
			c.dataIndex.Delete(box[0], box[1], it.ID)
		}
		c.data[it.ID] = it
		c.byID[it.ID] = [2][2]float64{it.min(), it.max()}
		toInsert = append(toInsert, it)
	}
	if len(toInsert) > 1 {
		bulkInsert(&c.dataIndex, toInsert)
		return
	}
	for _, it := range toInsert {
		c.dataIndex.Insert(it.min(), it.max(), it.ID)
	}
}

// bulkInsert loads many items at once. tidwall/rtree has no dedicated
// bulk-load entry point in its public API, so "bulk loading" here
// means inserting each item in the order given; the items are not
// sorted first.
func bulkInsert(tr *rtree.RTree[string], items []Item) {
	for _, it := range items {
		tr.Insert(it.min(), it.max(), it.ID)
	}
}

// RemoveData removes one or more data items by id.
func (s *System) RemoveData(cacheID string, ids ...string) {
	c := s.GetCache(cacheID)
	for _, id := range ids {
		box, ok := c.byID[id]
		if !ok {
			continue
		}
		c.dataIndex.Delete(box[0], box[1], id)
		delete(c.byID, id)
		delete(c.data, id)
	}
}

// AddTiles inserts each tile only if byID does not already contain its
// id: tiles are insert-only, never replaced in place.
func (s *System) AddTiles(cacheID string, tiles ...Tile) {
	c := s.GetCache(cacheID)
	for _, tl := range tiles {
		if _, ok := c.byID[tl.ID]; ok {
			continue
		}
		c.tiles[tl.ID] = tl
		c.byID[tl.ID] = [2][2]float64{tl.min(), tl.max()}
		c.tileIndex.Insert(tl.min(), tl.max(), tl.ID)
	}
}

// RemoveTiles removes one or more tiles by id.
func (s *System) RemoveTiles(cacheID string, ids ...string) {
	c := s.GetCache(cacheID)
	for _, id := range ids {
		box, ok := c.byID[id]
		if !ok {
			continue
		}
		c.tileIndex.Delete(box[0], box[1], id)
		delete(c.byID, id)
		delete(c.tiles, id)
	}
}

// GetVisibleData returns every data item in cacheID.
func (s *System) GetVisibleData(cacheID string) []Item {
	c := s.GetCache(cacheID)
	out := make([]Item, 0, len(c.data))
	for _, it := range c.data {
		out = append(out, it)
	}
	return out
}

// GetDataAtBox returns every data item whose extent intersects box.
func (s *System) GetDataAtBox(cacheID string, minX, minY, maxX, maxY float64) []Item {
	c := s.GetCache(cacheID)
	var out []Item
	c.dataIndex.Search([2]float64{minX, minY}, [2]float64{maxX, maxY}, func(_, _ [2]float64, id string) bool {
		if it, ok := c.data[id]; ok {
			out = append(out, it)
		}
		return true
	})
	return out
}

// HasDataAtBox reports whether any data item intersects box.
func (s *System) HasDataAtBox(cacheID string, minX, minY, maxX, maxY float64) bool {
	c := s.GetCache(cacheID)
	found := false
	c.dataIndex.Search([2]float64{minX, minY}, [2]float64{maxX, maxY}, func(_, _ [2]float64, _ string) bool {
		found = true
		return false
	})
	return found
}

// GetDataAtLoc searches an ε-box around loc (ε = s.locEpsilon).
func (s *System) GetDataAtLoc(cacheID string, x, y float64) []Item {
	e := s.locEpsilon
	return s.GetDataAtBox(cacheID, x-e, y-e, x+e, y+e)
}

// HasDataAtLoc is the boolean form of GetDataAtLoc.
func (s *System) HasDataAtLoc(cacheID string, x, y float64) bool {
	e := s.locEpsilon
	return s.HasDataAtBox(cacheID, x-e, y-e, x+e, y+e)
}

// HasTile reports whether cacheID's tile map contains tileID.
func (s *System) HasTile(cacheID, tileID string) bool {
	_, ok := s.GetCache(cacheID).tiles[tileID]
	return ok
}

// HasTileAtLoc reports whether any indexed tile covers (x, y).
func (s *System) HasTileAtLoc(cacheID string, x, y float64) bool {
	c := s.GetCache(cacheID)
	found := false
	c.tileIndex.Search([2]float64{x, y}, [2]float64{x, y}, func(_, _ [2]float64, _ string) bool {
		found = true
		return false
	})
	return found
}

// GetTile returns the tile with the given id, if present.
func (s *System) GetTile(cacheID, tileID string) (Tile, bool) {
	t, ok := s.GetCache(cacheID).tiles[tileID]
	return t, ok
}

// GetData returns the data item with the given id, if present.
func (s *System) GetData(cacheID, id string) (Item, bool) {
	it, ok := s.GetCache(cacheID).data[id]
	return it, ok
}

// HasData reports whether id is indexed as a data item.
func (s *System) HasData(cacheID, id string) bool {
	_, ok := s.GetCache(cacheID).data[id]
	return ok
}

// PreventCoincidentLoc returns a point at or north of (x, y) that does
// not collide with any indexed data in cacheID's ε-box test, stepping
// north to y + k*s.coincidenceStep for k = 1, 2, ... until clear.
func (s *System) PreventCoincidentLoc(cacheID string, x, y float64) (float64, float64) {
	y0 := y
	for k := 1; s.HasDataAtLoc(cacheID, x, y); k++ {
		y = y0 + float64(k)*s.coincidenceStep
		if math.IsInf(y, 1) {
			break // pathological: never reached in practice, guards an infinite loop
		}
	}
	return x, y
}
