package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds the graph used across the package tests:
//
//	0 (start) -> 1, 2;  1 -> 3;  2 -> 3
//
// with node 3 the single solution leaf.
func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder()
	b.SetIndex(1)
	b.SetLabelDependencies(2)
	fRule := b.Feature("rule(r1)")
	fDB := b.Feature("db")

	b.StartNode() // 0
	require.NoError(t, b.AddEdge(1))
	require.NoError(t, b.AddLabel(fRule, 1.0))
	require.NoError(t, b.AddEdge(2))
	require.NoError(t, b.AddLabel(fRule, 1.0))
	require.NoError(t, b.AddLabel(fDB, 0.5))
	b.StartNode() // 1
	require.NoError(t, b.AddEdge(3))
	require.NoError(t, b.AddLabel(fDB, 1.0))
	b.StartNode() // 2
	require.NoError(t, b.AddEdge(3))
	require.NoError(t, b.AddLabel(fDB, 2.0))
	b.StartNode() // 3

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuildDiamond(t *testing.T) {
	g := buildDiamond(t)

	assert.Equal(t, int32(4), g.NodeHigh())
	assert.Equal(t, int32(1), g.Index())
	assert.Equal(t, 3, g.NodeSize())
	assert.Equal(t, 4, g.EdgeSize())
	assert.Equal(t, 5, g.LabelSize())
	assert.Equal(t, 2, g.LabelDependencies())
	assert.Equal(t, []string{"db", "rule(r1)"}, g.FeatureSet())
	assert.Equal(t, []int32{3}, g.SolutionNodes())

	lo, hi := g.OutEdges(0)
	assert.Equal(t, int32(0), lo)
	assert.Equal(t, int32(2), hi)
	assert.Equal(t, 0, g.OutDegree(3))
}

func TestEdgeRangesPartitionEdgeArray(t *testing.T) {
	g := buildDiamond(t)

	covered := make([]int, g.EdgeSize())
	for u := int32(0); u < g.NodeHigh(); u++ {
		lo, hi := g.OutEdges(u)
		assert.LessOrEqual(t, lo, hi)
		for e := lo; e < hi; e++ {
			covered[e]++
		}
	}
	for e, n := range covered {
		assert.Equal(t, 1, n, "edge %d covered %d times", e, n)
	}
}

func TestLabelRangesPartitionLabelArrays(t *testing.T) {
	g := buildDiamond(t)

	covered := make([]int, g.LabelSize())
	for e := int32(0); e < int32(g.EdgeSize()); e++ {
		lo, hi := g.EdgeLabels(e)
		assert.LessOrEqual(t, lo, hi)
		for l := lo; l < hi; l++ {
			covered[l]++
			fid, _ := g.LabelAt(l)
			assert.NotEmpty(t, g.FeatureName(fid))
		}
	}
	for l, n := range covered {
		assert.Equal(t, 1, n, "label %d covered %d times", l, n)
	}
}

func TestDestinationsInRange(t *testing.T) {
	g := buildDiamond(t)
	for e := int32(0); e < int32(g.EdgeSize()); e++ {
		d := g.Dest(e)
		assert.GreaterOrEqual(t, d, int32(0))
		assert.Less(t, d, g.NodeHigh())
	}
}

func TestBuildRejectsOutOfRangeDestination(t *testing.T) {
	b := NewBuilder()
	f := b.Feature("f")
	b.StartNode()
	require.NoError(t, b.AddEdge(7)) // node 7 never appears
	require.NoError(t, b.AddLabel(f, 1.0))

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestBuildRejectsMisuse(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.AddEdge(0), ErrConsistency, "edge before any node")

	b = NewBuilder()
	b.StartNode()
	assert.ErrorIs(t, b.AddLabel(1, 1.0), ErrConsistency, "label before any edge")

	b = NewBuilder()
	b.StartNode()
	require.NoError(t, b.AddEdge(0))
	assert.ErrorIs(t, b.AddLabel(3, 1.0), ErrConsistency, "label feature never interned")
}

func TestBuilderSingleUse(t *testing.T) {
	b := NewBuilder()
	b.StartNode()
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestAlignFeatures(t *testing.T) {
	g := buildDiamond(t)

	dict := &fakeDict{ids: map[string]int32{}}
	l2g, err := g.AlignFeatures(dict)
	require.NoError(t, err)

	require.Len(t, l2g, g.FeatureCount()+1)
	// Local id 1 is "rule(r1)", local id 2 is "db"; the fake dictionary
	// hands out 100, 101 in call order.
	assert.Equal(t, int32(100), l2g[1])
	assert.Equal(t, int32(101), l2g[2])
}

type fakeDict struct {
	ids  map[string]int32
	next int32
}

func (d *fakeDict) Intern(name string) (int32, error) {
	if id, ok := d.ids[name]; ok {
		return id, nil
	}
	id := 100 + d.next
	d.next++
	d.ids[name] = id
	return id, nil
}
