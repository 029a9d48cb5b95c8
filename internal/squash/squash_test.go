package squash

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReLUFlooredPositive(t *testing.T) {
	assert.Equal(t, 2.5, ReLU.Value(2.5))
	assert.Equal(t, Floor, ReLU.Value(0))
	assert.Equal(t, Floor, ReLU.Value(-3))
	assert.Equal(t, 1.0, ReLU.Deriv(1))
	assert.Equal(t, 0.0, ReLU.Deriv(-1))
}

func TestClippedExpBounded(t *testing.T) {
	assert.InDelta(t, math.E, ClippedExp.Value(1), 1e-12)
	assert.Equal(t, ClippedExp.Value(ExpClip), ClippedExp.Value(ExpClip+100),
		"values at and above the clip are identical")

	// Below the clip the derivative equals the value.
	assert.Equal(t, ClippedExp.Value(3), ClippedExp.Deriv(3))
	assert.Equal(t, 0.0, ClippedExp.Deriv(ExpClip))
	assert.Equal(t, 0.0, ClippedExp.Deriv(ExpClip+1))
}

func TestSigmoidDerivative(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid.Value(0), 1e-12)
	assert.InDelta(t, 0.25, Sigmoid.Deriv(0), 1e-12)
	// Deep negative tail floors instead of reaching zero.
	assert.GreaterOrEqual(t, Sigmoid.Value(-1000), Floor)
}

func TestAllVariantsStayPositiveAndFinite(t *testing.T) {
	inputs := []float64{-1e308, -100, -1, 0, 1, 100, 1e308, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, k := range []Kind{ReLU, ClippedExp, Sigmoid} {
		for _, x := range inputs {
			v := k.Value(x)
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s.Value(%v) = %v", k, x, v)
			assert.Greater(t, v, 0.0, "%s.Value(%v) must stay positive", k, x)
			d := k.Deriv(x)
			assert.False(t, math.IsNaN(d) || math.IsInf(d, 0), "%s.Deriv(%v) = %v", k, x, d)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, k := range []Kind{ReLU, ClippedExp, Sigmoid} {
		got, err := Parse(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := Parse("tanh")
	assert.Error(t, err)
}
