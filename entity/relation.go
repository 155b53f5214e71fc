package entity

import "strings"

// MemberType discriminates what kind of entity a relation member refers to.
type MemberType int

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// Member is one entry in a relation's ordered member list.
type Member struct {
	ID   ID
	Type MemberType
	Role string
}

// Relation is an ordered sequence of members, each with a role. The same
// id may appear more than once with different roles.
type Relation struct {
	id      ID
	v       int
	tags    Tags
	members []Member
	geom    CachedGeometry
}

// NewRelation constructs a fresh, version-0 relation.
func NewRelation(id ID, members []Member, tags Tags) *Relation {
	cp := make([]Member, len(members))
	copy(cp, members)
	return &Relation{id: id, members: cp, tags: tags}
}

func (r *Relation) ID() ID        { return r.id }
func (r *Relation) Kind() Kind    { return KindRelation }
func (r *Relation) Version() int  { return r.v }
func (r *Relation) Tags() Tags    { return r.tags }
func (r *Relation) OSMID() int64  { return ParseOSMID(r.id) }
func (r *Relation) Members() []Member { return r.members }

// Update returns a new Relation with members and/or tags replaced,
// version bumped.
func (r *Relation) Update(members []Member, tags Tags) *Relation {
	cp := *r
	cp.v++
	if members != nil {
		ms := make([]Member, len(members))
		copy(ms, members)
		cp.members = ms
	}
	if tags != nil {
		cp.tags = tags
	}
	cp.geom = CachedGeometry{}
	return &cp
}

// IsMultipolygon reports tags.type == "multipolygon".
func (r *Relation) IsMultipolygon() bool {
	return r.tags["type"] == "multipolygon"
}

// IsRestriction reports whether tags.type starts with "restriction".
func (r *Relation) IsRestriction() bool {
	return strings.HasPrefix(r.tags["type"], "restriction")
}

// UniqueMemberIDs returns member ids de-duplicated by id only — role
// differences do not multiply parenthood, matching the spec's topology
// maintenance rule.
func (r *Relation) UniqueMemberIDs() []ID {
	seen := make(map[ID]struct{}, len(r.members))
	out := make([]ID, 0, len(r.members))
	for _, m := range r.members {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m.ID)
	}
	return out
}

// MemberRoles returns every role recorded for the given member id, in
// member order. Used by the connect and join actions' relation and
// restriction checks.
func (r *Relation) MemberRoles(id ID) []string {
	var roles []string
	for _, m := range r.members {
		if m.ID == id {
			roles = append(roles, m.Role)
		}
	}
	return roles
}

// Extent unions the extents of every resolvable member, bounding
// recursion depth so a self-referential relation cannot infinite-loop.
func (r *Relation) Extent(g GraphView) BBox {
	return r.extent(g, map[ID]struct{}{r.id: {}}, 0)
}

const maxRelationDepth = 64

func (r *Relation) extent(g GraphView, visited map[ID]struct{}, depth int) BBox {
	box := EmptyBBox()
	if depth > maxRelationDepth {
		return box
	}
	for _, m := range r.members {
		if _, seen := visited[m.ID]; seen {
			continue
		}
		e, ok := g.HasEntity(m.ID)
		if !ok {
			continue
		}
		switch child := e.(type) {
		case *Node:
			box = box.Union(child.Extent(g))
		case *Way:
			box = box.Union(child.Extent(g))
		case *Relation:
			visited[m.ID] = struct{}{}
			box = box.Union(child.extent(g, visited, depth+1))
		}
	}
	return box
}

// Geometry is always GeometryRelation.
func (r *Relation) Geometry(GraphView) GeometryKind {
	return GeometryRelation
}
