package grounder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testProgram = `
edge(/a, /b).
edge(/b, /c).
edge(/a, /d).

reachable(X, Y) :- edge(X, Y).
reachable(X, Z) :- edge(X, Y), reachable(Y, Z).
`

func loadTestProgram(t *testing.T) *Program {
	t.Helper()
	p, err := LoadProgram(testProgram, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestGroundOpenQuery(t *testing.T) {
	p := loadTestProgram(t)

	gr, err := p.Ground("reachable(/a, X)")
	require.NoError(t, err)

	// /a reaches /b, /c and /d.
	g := gr.Graph
	assert.Equal(t, int32(1), g.Index())
	assert.Equal(t, int32(4), g.NodeHigh())
	assert.Equal(t, 3, g.EdgeSize())
	assert.Equal(t, []int32{1, 2, 3}, g.SolutionNodes())

	require.Len(t, gr.NodeText, 4)
	assert.Equal(t, "", gr.NodeText[0], "reserved start node carries no atom")
	for _, text := range gr.NodeText[1:] {
		assert.True(t, strings.HasPrefix(text, "reachable("), "node text %q", text)
	}

	features := g.FeatureSet()
	assert.Contains(t, features, "db(reachable)")
	idFeatures := 0
	for _, f := range features {
		if strings.HasPrefix(f, "id(") {
			idFeatures++
		}
	}
	assert.Equal(t, 3, idFeatures, "one id feature per derived solution")
}

func TestGroundSolutionIDResolvesNodeText(t *testing.T) {
	p := loadTestProgram(t)

	gr, err := p.Ground("reachable(/a, X)")
	require.NoError(t, err)

	for u := 1; u < len(gr.NodeText); u++ {
		id, ok := gr.SolutionID(gr.NodeText[u])
		require.True(t, ok, "node text %q", gr.NodeText[u])
		assert.Equal(t, int32(u), id)
	}
	_, ok := gr.SolutionID("reachable(/z, /z)")
	assert.False(t, ok)
}

func TestGroundBoundQuery(t *testing.T) {
	p := loadTestProgram(t)

	gr, err := p.Ground("reachable(/a, /c)")
	require.NoError(t, err)
	assert.Equal(t, 1, gr.Graph.EdgeSize())
	assert.Len(t, gr.NodeText, 2)
}

func TestGroundNoDerivations(t *testing.T) {
	p := loadTestProgram(t)

	gr, err := p.Ground("reachable(/z, X)")
	require.NoError(t, err)
	assert.Equal(t, 0, gr.Graph.EdgeSize())
	assert.Empty(t, gr.Graph.SolutionNodes())
	assert.Len(t, gr.NodeText, 1)
}

func TestGroundDeterministicOrder(t *testing.T) {
	p := loadTestProgram(t)

	a, err := p.Ground("reachable(/a, X)")
	require.NoError(t, err)
	b, err := p.Ground("reachable(/a, X)")
	require.NoError(t, err)

	assert.Equal(t, a.Graph.String(), b.Graph.String())
	assert.Equal(t, a.NodeText, b.NodeText)
}

func TestGroundRecordRoundTripsThroughSerialization(t *testing.T) {
	p := loadTestProgram(t)

	gr, err := p.Ground("reachable(/a, X)")
	require.NoError(t, err)

	record := gr.Graph.String()
	assert.Equal(t, 3, strings.Count(record, "id("), "record carries the per-atom features")
}

func TestGroundRejectsMalformedQuery(t *testing.T) {
	p := loadTestProgram(t)
	_, err := p.Ground("not a query !!")
	assert.Error(t, err)
}

func TestLoadProgramRejectsBadSource(t *testing.T) {
	_, err := LoadProgram("edge(/a", zap.NewNop())
	assert.Error(t, err)
}
