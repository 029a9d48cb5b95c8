package trainer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofrank/internal/feature"
)

func TestParamsRoundTrip(t *testing.T) {
	dict := feature.NewDictionary()
	for _, name := range []string{"rule(r1)", "db(edge)", "id(edge(/a, /b))"} {
		_, err := dict.Intern(name)
		require.NoError(t, err)
	}
	w := feature.NewWeights(dict)
	w.Set(1, 0.25)
	w.Set(3, -1.5)

	var buf bytes.Buffer
	require.NoError(t, SaveParams(&buf, dict, w))

	want := "rule(r1)\t0.25\ndb(edge)\t1\nid(edge(/a, /b))\t-1.5\n"
	assert.Equal(t, want, buf.String())

	dict2 := feature.NewDictionary()
	w2 := feature.Weights{}
	applied, err := LoadParams(&buf, dict2, &w2)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	id, ok := dict2.ID("id(edge(/a, /b))")
	require.True(t, ok)
	assert.Equal(t, -1.5, w2.Get(id))
	id, ok = dict2.ID("rule(r1)")
	require.True(t, ok)
	assert.Equal(t, 0.25, w2.Get(id))
}

func TestLoadParamsSkipsCommentsAndBlanks(t *testing.T) {
	in := "# trained 2026-08-30\n\nf1\t2\n\nf2\t3\n"
	dict := feature.NewDictionary()
	w := feature.Weights{}

	applied, err := LoadParams(strings.NewReader(in), dict, &w)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, dict.Size())
}

func TestLoadParamsRejectsMalformedLines(t *testing.T) {
	dict := feature.NewDictionary()
	w := feature.Weights{}

	_, err := LoadParams(strings.NewReader("f1 2\n"), dict, &w)
	assert.Error(t, err, "space instead of tab")

	_, err = LoadParams(strings.NewReader("f1\tnope\n"), dict, &w)
	assert.Error(t, err, "unparseable weight")
}

func TestLoadParamsMergesIntoExistingDictionary(t *testing.T) {
	dict := feature.NewDictionary()
	existing, err := dict.Intern("f1")
	require.NoError(t, err)
	w := feature.NewWeights(dict)

	applied, err := LoadParams(strings.NewReader("f1\t0.5\nf2\t2\n"), dict, &w)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 0.5, w.Get(existing))

	id, ok := dict.ID("f2")
	require.True(t, ok)
	assert.Equal(t, 2.0, w.Get(id))
}
