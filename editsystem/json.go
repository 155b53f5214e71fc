package editsystem

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

const historyVersion = 3

// wireEntity is the on-the-wire shape of one Node/Way/Relation. Only
// the fields relevant to Kind are populated; json:",omitempty" keeps
// the encoding close to what a hand-written fixture would look like.
type wireEntity struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	V       int            `json:"v"`
	Tags    entity.Tags    `json:"tags,omitempty"`
	Loc     *entity.Loc    `json:"loc,omitempty"`
	Nodes   []string       `json:"nodes,omitempty"`
	Members []wireMember   `json:"members,omitempty"`
	Visible *bool          `json:"visible,omitempty"`
}

type wireMember struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role"`
}

type wireEditEntry struct {
	Modified    []string `json:"modified,omitempty"`
	Deleted     []string `json:"deleted,omitempty"`
	ImageryUsed []string `json:"imageryUsed,omitempty"`
	Annotation  string   `json:"annotation,omitempty"`
}

type wireHistory struct {
	Version      int               `json:"version"`
	Entities     []wireEntity      `json:"entities"`
	BaseEntities []wireEntity      `json:"baseEntities"`
	Stack        []wireEditEntry   `json:"stack"`
	NextIDs      map[string]int    `json:"nextIDs"`
	Index        int               `json:"index"`
}

func toWireEntity(e entity.Entity) wireEntity {
	w := wireEntity{ID: string(e.ID()), V: e.Version(), Tags: e.Tags()}
	switch v := e.(type) {
	case *entity.Node:
		w.Kind = "node"
		loc := v.Loc()
		w.Loc = &loc
	case *entity.Way:
		w.Kind = "way"
		for _, id := range v.Nodes() {
			w.Nodes = append(w.Nodes, string(id))
		}
	case *entity.Relation:
		w.Kind = "relation"
		for _, m := range v.Members() {
			w.Members = append(w.Members, wireMember{ID: string(m.ID), Type: memberTypeString(m.Type), Role: m.Role})
		}
	}
	return w
}

func memberTypeString(t entity.MemberType) string {
	switch t {
	case entity.MemberNode:
		return "node"
	case entity.MemberWay:
		return "way"
	default:
		return "relation"
	}
}

func fromWireEntity(w wireEntity) (entity.Entity, bool, error) {
	visible := w.Visible == nil || *w.Visible
	switch w.Kind {
	case "node":
		if w.Loc == nil {
			return nil, visible, fmt.Errorf("node %s missing loc", w.ID)
		}
		n := entity.NewNode(entity.ID(w.ID), *w.Loc, w.Tags)
		return withVersion(n, w.V), visible, nil
	case "way":
		ids := make([]entity.ID, len(w.Nodes))
		for i, id := range w.Nodes {
			ids[i] = entity.ID(id)
		}
		wy := entity.NewWay(entity.ID(w.ID), ids, w.Tags)
		return withVersion(wy, w.V), visible, nil
	case "relation":
		members := make([]entity.Member, len(w.Members))
		for i, m := range w.Members {
			members[i] = entity.Member{ID: entity.ID(m.ID), Type: memberTypeFromString(m.Type), Role: m.Role}
		}
		r := entity.NewRelation(entity.ID(w.ID), members, w.Tags)
		return withVersion(r, w.V), visible, nil
	default:
		return nil, visible, fmt.Errorf("unknown entity kind %q", w.Kind)
	}
}

func memberTypeFromString(s string) entity.MemberType {
	switch s {
	case "way":
		return entity.MemberWay
	case "relation":
		return entity.MemberRelation
	default:
		return entity.MemberNode
	}
}

// withVersion bumps a freshly constructed (version-0) entity up to v
// by replaying Update v times; cheap since the wire format never
// records the intermediate versions and v is small in practice.
func withVersion(e entity.Entity, v int) entity.Entity {
	for i := 0; i < v; i++ {
		switch t := e.(type) {
		case *entity.Node:
			e = t.Update(t.Loc(), false, nil)
		case *entity.Way:
			e = t.Update(nil, nil)
		case *entity.Relation:
			e = t.Update(nil, nil)
		}
	}
	return e
}

// ToJSON serializes the full edit history in the v3 format: the final
// state of every edited id, its pre-edit (base) state, and the stack
// of per-edit modified/deleted id lists the diffs are rebuilt from.
func (s *System) ToJSON() (string, error) {
	editedIDs := map[entity.ID]struct{}{}
	for _, e := range s.history {
		for id := range e.Graph.LocalIDs() {
			editedIDs[id] = struct{}{}
		}
	}

	// Resolve against the last history entry, not just the current
	// stable index, so a redo tail beyond the current index still has
	// its entities captured for replay on load.
	head := s.history[len(s.history)-1].Graph
	var entities, baseEntities []wireEntity
	for id := range editedIDs {
		if e, ok := head.HasEntity(id); ok {
			entities = append(entities, toWireEntity(e))
		}
		if be, ok := s.history[0].Graph.HasEntity(id); ok {
			baseEntities = append(baseEntities, toWireEntity(be))
		} else if be, ok := baseOnlyLookup(s.history, id); ok {
			baseEntities = append(baseEntities, toWireEntity(be))
		}
	}

	stack := make([]wireEditEntry, len(s.history))
	for i, e := range s.history {
		if i == 0 {
			continue
		}
		entry := wireEditEntry{Annotation: e.Annotation, ImageryUsed: e.SourcesUsed}
		prev := s.history[i-1].Graph
		for id := range e.Graph.LocalIDs() {
			cur, ok := e.Graph.HasEntity(id)
			if !ok {
				entry.Deleted = append(entry.Deleted, string(id))
				continue
			}
			if prevE, ok := prev.HasEntity(id); ok && prevE.Version() == cur.Version() {
				continue
			}
			entry.Modified = append(entry.Modified, fmt.Sprintf("%sv%d", id, cur.Version()))
		}
		stack[i] = entry
	}

	payload := wireHistory{
		Version:      historyVersion,
		Entities:     entities,
		BaseEntities: baseEntities,
		Stack:        stack,
		NextIDs:      s.ids.snapshot(),
		Index:        s.index,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("editsystem: marshal history: %w", err)
	}
	return string(b), nil
}

// baseOnlyLookup resolves id against the shared base layer directly,
// for ids whose pre-edit state predates history[0] (rebased-in data).
func baseOnlyLookup(history []Edit, id entity.ID) (entity.Entity, bool) {
	if len(history) == 0 {
		return nil, false
	}
	return history[0].Graph.HasEntity(id)
}

// FromJSONAsync reconstructs a System from the v3 format. It fails
// with ErrUnsupportedVersion for any other version field.
func FromJSONAsync(payload string) (*System, error) {
	var w wireHistory
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, fmt.Errorf("editsystem: unmarshal history: %w", err)
	}
	if w.Version != historyVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, w.Version, historyVersion)
	}

	byID := map[entity.ID]entity.Entity{}
	for _, we := range w.Entities {
		e, _, err := fromWireEntity(we)
		if err != nil {
			return nil, fmt.Errorf("editsystem: decode entities: %w", err)
		}
		byID[e.ID()] = e
	}

	s := New()

	var incoming []graph.Incoming
	for _, we := range w.BaseEntities {
		e, visible, err := fromWireEntity(we)
		if err != nil {
			return nil, fmt.Errorf("editsystem: decode baseEntities: %w", err)
		}
		incoming = append(incoming, graph.Incoming{Entity: e, Visible: visible})
	}
	stack := []*graph.Graph{s.history[0].Graph, s.staging.Graph}
	graph.Rebase(incoming, stack, true)

	cur := s.history[0].Graph
	history := []Edit{{Graph: cur}}
	for i := 1; i < len(w.Stack); i++ {
		entry := w.Stack[i]
		next := cur.Derive()
		for _, mv := range entry.Modified {
			id, _ := splitIDVersion(mv)
			if e, ok := byID[id]; ok {
				if err := next.Replace(e); err != nil {
					return nil, fmt.Errorf("editsystem: replay modified %s: %w", mv, err)
				}
			}
		}
		for _, d := range entry.Deleted {
			if e, ok := next.HasEntity(entity.ID(d)); ok {
				if err := next.Remove(e); err != nil {
					return nil, fmt.Errorf("editsystem: replay deleted %s: %w", d, err)
				}
			}
		}
		next.Commit()
		history = append(history, Edit{
			Graph:       next,
			Annotation:  entry.Annotation,
			SourcesUsed: entry.ImageryUsed,
		})
		cur = next
	}

	s.history = history
	if w.Index >= 0 && w.Index < len(history) {
		s.index = w.Index
	} else {
		s.index = len(history) - 1
	}
	s.staging = Edit{Graph: s.stable().Graph.Derive()}

	if n, ok := w.NextIDs["node"]; ok {
		s.ids.seed(IDKindNode, n)
	}
	if n, ok := w.NextIDs["way"]; ok {
		s.ids.seed(IDKindWay, n)
	}
	if n, ok := w.NextIDs["relation"]; ok {
		s.ids.seed(IDKindRelation, n)
	}

	return s, nil
}

func splitIDVersion(s string) (entity.ID, int) {
	i := strings.LastIndex(s, "v")
	if i < 0 {
		return entity.ID(s), 0
	}
	v, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return entity.ID(s), 0
	}
	return entity.ID(s[:i]), v
}
