package entity

// Loc is a WGS84 coordinate pair, [lon, lat]. The core treats it as an
// opaque pair of floats; no projection math happens here.
type Loc [2]float64

// Lon returns the longitude component.
func (l Loc) Lon() float64 { return l[0] }

// Lat returns the latitude component.
func (l Loc) Lat() float64 { return l[1] }

// Node is a single point entity.
type Node struct {
	id      ID
	v       int
	tags    Tags
	loc     Loc
}

// NewNode constructs a fresh, version-0 node.
func NewNode(id ID, loc Loc, tags Tags) *Node {
	return &Node{id: id, loc: loc, tags: tags}
}

func (n *Node) ID() ID       { return n.id }
func (n *Node) Kind() Kind   { return KindNode }
func (n *Node) Version() int { return n.v }
func (n *Node) Tags() Tags   { return n.tags }
func (n *Node) Loc() Loc     { return n.loc }
func (n *Node) OSMID() int64 { return ParseOSMID(n.id) }

// Update returns a new Node with loc and/or tags replaced, version bumped.
// Passing the zero Loc leaves the location unchanged only when moved is
// false; callers that genuinely want to move a node to (0,0) must say so.
func (n *Node) Update(loc Loc, moved bool, tags Tags) *Node {
	cp := *n
	cp.v++
	if moved {
		cp.loc = loc
	}
	if tags != nil {
		cp.tags = tags
	}
	return &cp
}

// Extent for a node is a zero-area box at its location; it never
// depends on the graph.
func (n *Node) Extent(GraphView) BBox {
	return BBox{MinX: n.loc.Lon(), MinY: n.loc.Lat(), MaxX: n.loc.Lon(), MaxY: n.loc.Lat()}
}

// Geometry always reports GeometryPoint for a bare Node. The vertex/point
// distinction depends on whether the node has way or relation parents,
// which only the Graph's topology indices know about — callers that need
// that distinction call graph.Graph.GeometryOf instead of Entity.Geometry.
func (n *Node) Geometry(GraphView) GeometryKind {
	return GeometryPoint
}
