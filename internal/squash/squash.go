// Package squash defines the differentiable functions that turn a raw
// feature-weighted sum into a valid edge transition weight.
//
// A transition weight must be strictly positive (zero or negative weights
// break the walk's probability semantics) and bounded (overflow breaks
// normalization), so every variant clamps its output to its documented
// range. The set of variants is small and fixed per run, dispatched by a
// closed enumeration rather than a plugin registry.
package squash

import (
	"fmt"
	"math"
)

// Kind selects a squashing function. The choice is made once per run and
// shared by every graph and every worker.
type Kind int

const (
	// ReLU is a rectified-linear form floored at Floor.
	ReLU Kind = iota
	// ClippedExp is exp(x) clipped above at exp(ExpClip).
	ClippedExp
	// Sigmoid is the logistic function 1/(1+exp(-x)).
	Sigmoid
)

const (
	// Floor is the smallest transition weight ReLU will produce.
	Floor = 1e-4
	// ExpClip bounds the exponent of ClippedExp.
	ExpClip = 50.0
)

// Parse maps a config/flag string to a Kind.
func Parse(s string) (Kind, error) {
	switch s {
	case "relu", "ReLU":
		return ReLU, nil
	case "exp", "clipped_exp":
		return ClippedExp, nil
	case "sigmoid":
		return Sigmoid, nil
	}
	return 0, fmt.Errorf("squash: unknown function %q", s)
}

func (k Kind) String() string {
	switch k {
	case ReLU:
		return "relu"
	case ClippedExp:
		return "exp"
	case Sigmoid:
		return "sigmoid"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value evaluates the function at x. Non-finite results clamp to the
// function's bounds rather than propagate.
func (k Kind) Value(x float64) float64 {
	var v float64
	switch k {
	case ReLU:
		v = math.Max(x, Floor)
	case ClippedExp:
		v = math.Exp(math.Min(x, ExpClip))
		if v == 0 { // exp underflow; weights must stay positive
			v = math.SmallestNonzeroFloat64
		}
	case Sigmoid:
		v = 1 / (1 + math.Exp(-x))
		if v < Floor {
			v = Floor
		}
	default:
		v = Floor
	}
	return clampFinite(v)
}

// Deriv evaluates d Value / dx at x.
func (k Kind) Deriv(x float64) float64 {
	var d float64
	switch k {
	case ReLU:
		if x > Floor {
			d = 1
		}
	case ClippedExp:
		if x < ExpClip {
			d = math.Exp(x)
		}
	case Sigmoid:
		s := 1 / (1 + math.Exp(-x))
		d = s * (1 - s)
	}
	return clampFinite(d)
}

// clampFinite maps NaN and infinities back into the representable range.
func clampFinite(v float64) float64 {
	if math.IsNaN(v) {
		return Floor
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) || v < 0 {
		return 0
	}
	return v
}
