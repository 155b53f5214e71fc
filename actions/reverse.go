package actions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

// ReverseAction reverses a way's node order and every tag whose meaning
// is directional, on the way itself, its child nodes, and the member
// roles of any parent relation.
type ReverseAction struct {
	WayID         entity.ID
	ReverseOneway bool
}

var _ Action = ReverseAction{}

// Disabled reports NotEligible if the way cannot be resolved.
func (a ReverseAction) Disabled(g *graph.Graph) (DisabledCode, bool) {
	e, err := g.Entity(a.WayID)
	if err != nil {
		return NotEligible, true
	}
	if _, ok := e.(*entity.Way); !ok {
		return NotEligible, true
	}
	return "", false
}

// Apply reverses the way in place (node order + directional tags),
// plus any child node's own directional tags and any parent relation's
// member role for this way.
func (a ReverseAction) Apply(g *graph.Graph) (*graph.Graph, error) {
	e, err := g.Entity(a.WayID)
	if err != nil {
		return nil, err
	}
	w, ok := e.(*entity.Way)
	if !ok {
		return nil, fmt.Errorf("reverse: %s is not a way", a.WayID)
	}

	out := g.Derive()

	nodes := w.Nodes()
	reversed := make([]entity.ID, len(nodes))
	for i, id := range nodes {
		reversed[len(nodes)-1-i] = id
	}
	newTags := reverseTags(w.Tags(), a.ReverseOneway)
	newWay := w.Update(reversed, newTags)
	if err := out.Replace(newWay); err != nil {
		return nil, err
	}

	for _, nid := range w.UniqueNodeIDs() {
		ne, ok := out.HasEntity(nid)
		if !ok {
			continue
		}
		n, ok := ne.(*entity.Node)
		if !ok || len(n.Tags()) == 0 {
			continue
		}
		nt := reverseTags(n.Tags(), a.ReverseOneway)
		if !nt.Equal(n.Tags()) {
			if err := out.Replace(n.Update(n.Loc(), false, nt)); err != nil {
				return nil, err
			}
		}
	}

	parents, err := out.ParentRelations(newWay)
	if err == nil {
		for _, r := range parents {
			members := make([]entity.Member, len(r.Members()))
			copy(members, r.Members())
			changed := false
			for i, m := range members {
				if m.ID == a.WayID {
					if nr, ok := reverseRole(m.Role); ok {
						members[i].Role = nr
						changed = true
					}
				}
			}
			if changed {
				if err := out.Replace(r.Update(members, r.Tags())); err != nil {
					return nil, err
				}
			}
		}
	}

	out.Commit()
	return out, nil
}

// directionalKeySuffixes pairs tag-key suffixes whose meaning flips
// under reversal (e.g. cycleway:right <-> cycleway:left).
var directionalKeySuffixes = [][2]string{
	{":left", ":right"},
	{":forward", ":backward"},
}

func reverseTagKey(key string) string {
	for _, pair := range directionalKeySuffixes {
		if strings.HasSuffix(key, pair[0]) {
			return strings.TrimSuffix(key, pair[0]) + pair[1]
		}
		if strings.HasSuffix(key, pair[1]) {
			return strings.TrimSuffix(key, pair[1]) + pair[0]
		}
	}
	return key
}

var directionalValuePairs = [][2]string{
	{"forward", "backward"},
	{"forwards", "backward"}, // P6: canonicalizes the trailing "s" away on double-reverse
	{"backwards", "forward"},
	{"up", "down"},
	{"left", "right"},
}

var compassPoints = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// reverseValue swaps a directional word value. Compass points and
// numeric degrees are only rewritten when absolute is set, i.e. for a
// direction key; elsewhere they are ordinary values (lanes=2).
func reverseValue(v string, absolute bool) string {
	for _, pair := range directionalValuePairs {
		if v == pair[0] {
			return pair[1]
		}
		if v == pair[1] {
			return pair[0]
		}
	}
	if !absolute {
		return v
	}
	for i, p := range compassPoints {
		if v == p {
			return compassPoints[(i+len(compassPoints)/2)%len(compassPoints)]
		}
	}
	if deg, err := strconv.ParseFloat(v, 64); err == nil {
		d := deg + 180
		for d >= 360 {
			d -= 360
		}
		for d < 0 {
			d += 360
		}
		return formatDegrees(d)
	}
	return v
}

func formatDegrees(d float64) string {
	if d == float64(int64(d)) {
		return strconv.FormatInt(int64(d), 10)
	}
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// reverseIncline negates a signed numeric or percent incline value
// ("10%" <-> "-10%"), leaving "up"/"down" to the generic value table.
func reverseIncline(v string) string {
	pct := strings.HasSuffix(v, "%")
	num := strings.TrimSuffix(v, "%")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return reverseValue(v, false)
	}
	f = -f
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if pct {
		s += "%"
	}
	return s
}

// reverseTags returns a new Tags map with directional keys/values
// swapped. oneway is left untouched unless reverseOneway is set, in
// which case yes<->-1 and other values pass through unchanged.
func reverseTags(tags entity.Tags, reverseOneway bool) entity.Tags {
	out := make(entity.Tags, len(tags))
	for k, v := range tags {
		switch {
		case k == "oneway":
			if reverseOneway {
				out[k] = reverseOnewayValue(v)
			} else {
				out[k] = v
			}
		case k == "incline" || strings.HasSuffix(k, ":incline"):
			out[reverseTagKey(k)] = reverseIncline(v)
		default:
			absolute := k == "direction" || strings.HasSuffix(k, ":direction")
			out[reverseTagKey(k)] = reverseValue(v, absolute)
		}
	}
	return out
}

func reverseOnewayValue(v string) string {
	switch v {
	case "yes":
		return "-1"
	case "-1":
		return "yes"
	default:
		return v
	}
}

// reverseRole swaps a forward/backward relation member role, leaving
// any other role (from, to, via, ...) unchanged.
func reverseRole(role string) (string, bool) {
	switch role {
	case "forward":
		return "backward", true
	case "backward":
		return "forward", true
	default:
		return role, false
	}
}
