package entity

// areaTags are the well-known tag keys whose presence on a closed way
// indicates area, not line, semantics. This mirrors the small well-known
// set used by the original editor; it is intentionally not exhaustive of
// every OSM area tag, just the ones edit actions must reason about.
var areaTags = map[string]bool{
	"area":        true,
	"building":    true,
	"landuse":     true,
	"leisure":     true,
	"natural":     true,
	"amenity":     true,
	"shop":        true,
	"tourism":     true,
	"waterway":    true, // waterway=riverbank is an area; other waterway values are lines but area() still consults tags below
}

// lineValuesForAreaKey holds keys whose values, even on a closed way,
// still mean line semantics (e.g. waterway=stream around a yard).
var lineValuesForAreaKey = map[string]map[string]bool{
	"waterway": {"river": true, "stream": true, "canal": true, "drain": true, "ditch": true},
}

// Way is an ordered sequence of node ids.
type Way struct {
	id    ID
	v     int
	tags  Tags
	nodes []ID
	geom  CachedGeometry
}

// NewWay constructs a fresh, version-0 way.
func NewWay(id ID, nodes []ID, tags Tags) *Way {
	cp := make([]ID, len(nodes))
	copy(cp, nodes)
	return &Way{id: id, nodes: cp, tags: tags}
}

func (w *Way) ID() ID         { return w.id }
func (w *Way) Kind() Kind     { return KindWay }
func (w *Way) Version() int   { return w.v }
func (w *Way) Tags() Tags     { return w.tags }
func (w *Way) OSMID() int64   { return ParseOSMID(w.id) }

// Nodes returns the way's node id sequence. Callers must not mutate the
// returned slice.
func (w *Way) Nodes() []ID { return w.nodes }

// Update returns a new Way with nodes and/or tags replaced, version bumped.
func (w *Way) Update(nodes []ID, tags Tags) *Way {
	cp := *w
	cp.v++
	if nodes != nil {
		ns := make([]ID, len(nodes))
		copy(ns, nodes)
		cp.nodes = ns
	}
	if tags != nil {
		cp.tags = tags
	}
	cp.geom = CachedGeometry{}
	return &cp
}

// IsClosed reports whether the way's first and last node ids match and
// the way has at least two node entries.
func (w *Way) IsClosed() bool {
	return len(w.nodes) > 1 && w.nodes[0] == w.nodes[len(w.nodes)-1]
}

// IsDegenerate reports whether the way has fewer than 2 distinct nodes.
func (w *Way) IsDegenerate() bool {
	distinct := make(map[ID]struct{}, len(w.nodes))
	for _, n := range w.nodes {
		distinct[n] = struct{}{}
	}
	return len(distinct) < 2
}

// IsArea reports whether the way is closed and its tags indicate area
// semantics per the well-known tag set.
func (w *Way) IsArea() bool {
	if !w.IsClosed() {
		return false
	}
	if w.tags["area"] == "no" {
		return false
	}
	for k, v := range w.tags {
		if lineVals, ok := lineValuesForAreaKey[k]; ok && lineVals[v] {
			continue
		}
		if areaTags[k] {
			return true
		}
	}
	return false
}

// Extent unions the extents of every resolvable child node. Missing
// children are skipped rather than raised, matching the geometry-update
// pass's tolerance for partially-deleted graphs.
func (w *Way) Extent(g GraphView) BBox {
	box := EmptyBBox()
	for _, nid := range w.nodes {
		e, ok := g.HasEntity(nid)
		if !ok {
			continue
		}
		n, ok := e.(*Node)
		if !ok {
			continue
		}
		box = box.Extend(n.Loc().Lon(), n.Loc().Lat())
	}
	return box
}

// Geometry is GeometryArea for closed, area-tagged ways and GeometryLine
// otherwise.
func (w *Way) Geometry(GraphView) GeometryKind {
	if w.IsArea() {
		return GeometryArea
	}
	return GeometryLine
}

// UniqueNodeIDs returns the way's node ids with duplicates collapsed,
// preserving first-seen order. Used by topology maintenance to compute
// ref deltas.
func (w *Way) UniqueNodeIDs() []ID {
	seen := make(map[ID]struct{}, len(w.nodes))
	out := make([]ID, 0, len(w.nodes))
	for _, n := range w.nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
