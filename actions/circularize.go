package actions

import (
	"fmt"
	"math"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

// Viewport is the minimal projection contract circularize needs: it
// only ever reasons about world-space coordinates, treating lon/lat as
// opaque numbers per the core's Non-goals (no projection math here).
type Viewport interface{}

// CircularizeAction reshapes a closed way into a regular polygon.
type CircularizeAction struct {
	WayID    entity.ID
	Viewport Viewport
	MaxAngle float64 // degrees; defaults to 20 when zero
}

var _ Transitionable = CircularizeAction{}

func (a CircularizeAction) maxAngle() float64 {
	if a.MaxAngle <= 0 {
		return 20
	}
	return a.MaxAngle
}

func (a CircularizeAction) resolveWay(g *graph.Graph) (*entity.Way, bool) {
	e, err := g.Entity(a.WayID)
	if err != nil {
		return nil, false
	}
	w, ok := e.(*entity.Way)
	return w, ok
}

// Disabled reports NotEligible for a non-closed way, AlreadyCircular
// for a way whose nodes already sit on a regular polygon within
// tolerance at or above maxAngle's target vertex count. A way that is
// already regular but has fewer nodes than that target is still
// reported as eligible rather than being treated as already satisfying
// maxAngle.
func (a CircularizeAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	w, ok := a.resolveWay(g)
	if !ok || !w.IsClosed() || w.IsDegenerate() {
		return NotEligible, true
	}
	pts, ok := resolvePoints(g, w.UniqueNodeIDs())
	if !ok {
		return NotEligible, true
	}
	minVertices := int(math.Ceil(360 / a.maxAngle()))
	if isRegularPolygon(pts) && len(pts) >= minVertices {
		return AlreadyCircular, true
	}
	return "", false
}

func resolvePoints(g *graph.Graph, ids []entity.ID) ([]entity.Loc, bool) {
	pts := make([]entity.Loc, 0, len(ids))
	for _, id := range ids {
		e, ok := g.HasEntity(id)
		if !ok {
			return nil, false
		}
		n, ok := e.(*entity.Node)
		if !ok {
			return nil, false
		}
		pts = append(pts, n.Loc())
	}
	return pts, true
}

func isRegularPolygon(pts []entity.Loc) bool {
	if len(pts) < 3 {
		return false
	}
	cx, cy := centroid(pts)
	r0 := math.Hypot(pts[0].Lon()-cx, pts[0].Lat()-cy)
	const tolerance = 1e-9
	for _, p := range pts[1:] {
		r := math.Hypot(p.Lon()-cx, p.Lat()-cy)
		if math.Abs(r-r0) > tolerance*math.Max(1, r0) {
			return false
		}
	}
	return true
}

func centroid(pts []entity.Loc) (float64, float64) {
	var sx, sy float64
	for _, p := range pts {
		sx += p.Lon()
		sy += p.Lat()
	}
	n := float64(len(pts))
	return sx / n, sy / n
}

// windingSign returns +1 for counterclockwise, -1 for clockwise, via
// the shoelace formula's sign.
func windingSign(pts []entity.Loc) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].Lon()*pts[j].Lat() - pts[j].Lon()*pts[i].Lat()
	}
	if sum < 0 {
		return -1
	}
	return 1
}

// Apply runs the transform at its terminal state, t=1.
func (a CircularizeAction) Apply(g *graph.Graph) (*graph.Graph, error) {
	return a.ApplyAt(g, 1)
}

// ApplyAt moves every node not shared with another way toward its
// target position on a regular polygon, linearly interpolated by t.
// Nodes shared with another way are never moved ("limits movement of
// nodes shared with other ways" in the strictest sense: zero movement).
// The existing nodes are spaced evenly across the full circle (angle
// denominator is len(pts), not ceil(360/maxAngle)), so every moved node
// lands on one regular polygon; when some nodes are shared and stay put,
// the result as a whole is not regular. No new node ids are allocated to
// reach maxAngle's target vertex count.
func (a CircularizeAction) ApplyAt(g *graph.Graph, t float64) (*graph.Graph, error) {
	w, ok := a.resolveWay(g)
	if !ok {
		return nil, fmt.Errorf("circularize: %s not eligible", a.WayID)
	}
	uniqueIDs := w.UniqueNodeIDs()
	pts, ok := resolvePoints(g, uniqueIDs)
	if !ok {
		return nil, fmt.Errorf("circularize: %s has unresolved nodes", a.WayID)
	}

	cx, cy := centroid(pts)
	var radiusSum float64
	for _, p := range pts {
		radiusSum += math.Hypot(p.Lon()-cx, p.Lat()-cy)
	}
	radius := radiusSum / float64(len(pts))
	sign := windingSign(pts)

	n := len(pts)

	out := g.Derive()
	for i, id := range uniqueIDs {
		e, ok := out.HasEntity(id)
		if !ok {
			continue
		}
		node, ok := e.(*entity.Node)
		if !ok {
			continue
		}
		shared, err := sharedWithOtherWay(out, node, w.ID())
		if err == nil && shared {
			continue
		}

		angle := sign * 2 * math.Pi * float64(i) / float64(n)
		target := entity.Loc{cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)}
		interp := entity.Loc{
			lerp(node.Loc().Lon(), target.Lon(), t),
			lerp(node.Loc().Lat(), target.Lat(), t),
		}
		if err := out.Replace(node.Update(interp, true, nil)); err != nil {
			return nil, err
		}
	}

	if t >= 1 {
		out.Commit()
	}
	return out, nil
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func sharedWithOtherWay(g *graph.Graph, n *entity.Node, excludeWay entity.ID) (bool, error) {
	ways, err := g.ParentWays(n)
	if err != nil {
		return false, err
	}
	for _, w := range ways {
		if w.ID() != excludeWay {
			return true, nil
		}
	}
	return false, nil
}
