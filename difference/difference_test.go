package difference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
)

func TestComputeCreatedModifiedDeleted(t *testing.T) {
	base := graph.NewBase()
	g := base.Derive()

	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 1}, nil)
	require.NoError(t, g.Replace(a, b))
	baseline := g.Derive()

	moved := a.Update(entity.Loc{9, 9}, true, nil)
	c := entity.NewNode("c", entity.Loc{2, 2}, nil)
	head := g.Derive()
	require.NoError(t, head.Replace(moved, c))
	require.NoError(t, head.Remove(b))

	d := Compute(baseline, head)

	require.Len(t, d.Created(), 1)
	assert.Equal(t, entity.ID("c"), d.Created()[0].ID())

	require.Len(t, d.Modified(), 1)
	assert.Equal(t, entity.ID("a"), d.Modified()[0].ID())

	require.Len(t, d.Deleted(), 1)
	assert.Equal(t, entity.ID("b"), d.Deleted()[0].ID())
}

func TestComputeNoChangesIsEmpty(t *testing.T) {
	base := graph.NewBase()
	g := base.Derive()
	n := entity.NewNode("a", entity.Loc{0, 0}, nil)
	require.NoError(t, g.Replace(n))

	d := Compute(g, g)
	assert.Empty(t, d.Changes())
}

func TestSummarySurfacesParentWayOnNodeMove(t *testing.T) {
	base := graph.NewBase()
	g := base.Derive()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	b := entity.NewNode("b", entity.Loc{1, 0}, nil)
	w := entity.NewWay("w", []entity.ID{"a", "b"}, nil)
	require.NoError(t, g.Replace(a, b, w))
	g.Commit()
	baseline := g.Derive()

	head := g.Derive()
	moved := a.Update(entity.Loc{5, 5}, true, nil)
	require.NoError(t, head.Replace(moved))
	head.Commit()

	d := Compute(baseline, head)
	summary := d.Summary()

	assert.Contains(t, summary, entity.ID("a"))
	entry, ok := summary["w"]
	require.True(t, ok, "expected way w surfaced in summary because its child node moved")
	assert.Equal(t, Modified, entry.ChangeType)
}

func TestCompleteReturnsFinalEntityOrNilForDeletes(t *testing.T) {
	base := graph.NewBase()
	g := base.Derive()
	a := entity.NewNode("a", entity.Loc{0, 0}, nil)
	require.NoError(t, g.Replace(a))
	baseline := g.Derive()

	head := g.Derive()
	require.NoError(t, head.Remove(a))

	d := Compute(baseline, head)
	complete := d.Complete()
	v, ok := complete["a"]
	require.True(t, ok)
	assert.Nil(t, v)
}
