package entity

// CachedGeometry holds the derived fields a geometry updater pass
// populates on ways and relations: extent, centroid, and (for areas)
// enclosed area in world-coordinate units squared. Nodes have no
// derived geometry — their position *is* their geometry.
type CachedGeometry struct {
	Extent   BBox
	Centroid Loc
	Area     float64
	Valid    bool
}

// RecomputeGeometry returns a copy of w with its cached geometry fields
// populated from the current graph view. It does not bump the way's
// version — geometry is a derived cache, not an edit.
func (w *Way) RecomputeGeometry(g GraphView) *Way {
	cp := *w
	cp.geom = computeWayGeometry(w, g)
	return &cp
}

// CachedExtent returns the last computed extent, or an empty box if
// RecomputeGeometry has never run.
func (w *Way) CachedExtent() BBox {
	if !w.geom.Valid {
		return EmptyBBox()
	}
	return w.geom.Extent
}

// CachedCentroid returns the last computed centroid.
func (w *Way) CachedCentroid() Loc { return w.geom.Centroid }

// CachedArea returns the last computed enclosed area (zero for non-areas).
func (w *Way) CachedArea() float64 { return w.geom.Area }

func computeWayGeometry(w *Way, g GraphView) CachedGeometry {
	var pts []Loc
	for _, nid := range w.nodes {
		e, ok := g.HasEntity(nid)
		if !ok {
			continue
		}
		n, ok := e.(*Node)
		if !ok {
			continue
		}
		pts = append(pts, n.Loc())
	}
	out := CachedGeometry{Extent: w.Extent(g), Valid: true}
	if len(pts) == 0 {
		return out
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.Lon()
		sy += p.Lat()
	}
	out.Centroid = Loc{sx / float64(len(pts)), sy / float64(len(pts))}
	if w.IsArea() {
		out.Area = shoelaceArea(pts)
	}
	return out
}

// shoelaceArea computes the unsigned polygon area via the shoelace
// formula. Coordinates are treated as a flat plane, matching the spec's
// "opaque world-space numbers" scope (no geodesic correction here).
func shoelaceArea(pts []Loc) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].Lon()*pts[j].Lat() - pts[j].Lon()*pts[i].Lat()
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// RecomputeGeometry returns a copy of r with its cached extent/centroid
// populated. Relation geometry never includes an area figure — a
// relation's shape depends on ring assembly the core does not perform.
func (r *Relation) RecomputeGeometry(g GraphView) *Relation {
	cp := *r
	ext := r.Extent(g)
	cp.geom = CachedGeometry{
		Extent:   ext,
		Centroid: Loc{(ext.MinX + ext.MaxX) / 2, (ext.MinY + ext.MaxY) / 2},
		Valid:    !ext.Empty(),
	}
	return &cp
}

// CachedExtent returns the last computed extent.
func (r *Relation) CachedExtent() BBox { return r.geom.Extent }

// CachedCentroid returns the last computed centroid.
func (r *Relation) CachedCentroid() Loc { return r.geom.Centroid }
