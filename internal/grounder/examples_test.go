package grounder

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofrank/internal/walk"
)

func TestParseExamples(t *testing.T) {
	in := strings.Join([]string{
		"# training set",
		"",
		"reachable(/a, X)\t+reachable(/a, /b)\t-reachable(/a, /d)",
		"reachable(/b, X)\t+reachable(/b, /c)",
		"reachable(/c, X)",
	}, "\n")

	queries, bad := ParseExamples(strings.NewReader(in))
	require.Empty(t, bad)
	require.Len(t, queries, 3)

	assert.Equal(t, "reachable(/a, X)", queries[0].Query)
	assert.Equal(t, []string{"reachable(/a, /b)"}, queries[0].Pos)
	assert.Equal(t, []string{"reachable(/a, /d)"}, queries[0].Neg)

	assert.Equal(t, []string{"reachable(/b, /c)"}, queries[1].Pos)
	assert.Empty(t, queries[1].Neg)

	assert.Empty(t, queries[2].Pos)
	assert.Empty(t, queries[2].Neg)
}

func TestParseExamplesKeepsGoodLinesAroundBadOnes(t *testing.T) {
	in := strings.Join([]string{
		"q(/a, X)\t+q(/a, /b)",
		"q(/b, X)\tq(/b, /c)", // label without sign
		"q(/c, X)\t-q(/c, /d)",
	}, "\n")

	queries, bad := ParseExamples(strings.NewReader(in))
	require.Len(t, queries, 2)
	require.Len(t, bad, 1)
	assert.ErrorIs(t, bad[0], ErrBadExample)
	assert.Contains(t, bad[0].Error(), "line 2")
}

func TestParseExamplesSkipsEmptyLabelFields(t *testing.T) {
	queries, bad := ParseExamples(strings.NewReader("q(/a, X)\t\t+q(/a, /b)\t\n"))
	require.Empty(t, bad)
	require.Len(t, queries, 1)
	assert.Equal(t, []string{"q(/a, /b)"}, queries[0].Pos)
}

func TestWriteSolutions(t *testing.T) {
	gr := &Grounded{
		Query:    "reachable(/a, X)",
		NodeText: []string{"", "reachable(/a, /b)", "reachable(/a, /c)"},
	}
	ranked := []walk.Scored{
		{Node: 2, Score: 0.75},
		{Node: 1, Score: 0.25},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSolutions(&buf, gr, ranked, 1500*time.Microsecond))

	want := "# proved 2\treachable(/a, X)\t1.5ms\n" +
		"1\t0.75\treachable(/a, /c)\n" +
		"2\t0.25\treachable(/a, /b)\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSolutionsFallsBackToNodeID(t *testing.T) {
	gr := &Grounded{Query: "q(X)", NodeText: []string{""}}
	ranked := []walk.Scored{{Node: 5, Score: 1}}

	var buf bytes.Buffer
	require.NoError(t, WriteSolutions(&buf, gr, ranked, 0))
	assert.Contains(t, buf.String(), "1\t1\tnode:5\n")
}
