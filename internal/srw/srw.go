// Package srw differentiates the approximate personalized walk with
// respect to the trainable feature weights (supervised random walk).
//
// Instead of differentiating a generic fixed point, the tape replays the
// exact push sequence the walk recorded and propagates partial
// derivatives alongside the probability mass: each push contributes
// alpha * dr to dp and distributes (1-alpha) * (dr*w + r*dw) to neighbor
// residual derivatives, where dw follows from the squashing-function
// derivative restricted to the features on that edge. Only features
// touching a pushed edge ever accumulate gradient, so cost tracks the
// work the walk actually did, not the feature space.
package srw

import (
	"errors"
	"math"

	"proofrank/internal/feature"
	"proofrank/internal/graph"
	"proofrank/internal/squash"
	"proofrank/internal/walk"
)

// ErrNoResult is returned when the tape is replayed without a walk result.
var ErrNoResult = errors.New("srw: nil walk result")

// probClip keeps log-loss terms finite for solutions scored at 0 or 1.
const probClip = 1e-10

// Options parameterize loss and regularization. Alpha and Squash must
// match the options of the walk being differentiated.
type Options struct {
	Alpha  float64
	Squash squash.Kind
	// Mu is the L2 shrinkage strength.
	Mu float64
	// RegScale is the epoch decay multiplier applied to the
	// regularization term; 1 means undecayed.
	RegScale float64
}

// DefaultOptions returns the training defaults of the original system.
func DefaultOptions() Options {
	return Options{Alpha: 0.1, Squash: squash.ReLU, Mu: 0.001, RegScale: 1}
}

// Gradient is one example's contribution to the weight update.
type Gradient struct {
	// ByFeature maps dictionary feature id to dLoss/dWeight. Only
	// features touched by at least one pushed edge appear.
	ByFeature map[int32]float64
	// Loss is the raw pos/neg log loss, RegLoss the L2 penalty that was
	// added on top.
	Loss    float64
	RegLoss float64
	// Unreachable counts labeled solutions that were not among the
	// graph's solution nodes; they contribute no gradient.
	Unreachable int
}

// Compute replays res's push sequence over g and chains the resulting
// dp/dtheta through the pos/neg loss. pos and neg hold solution node ids;
// either may be empty. local2global translates record-local feature ids,
// as in walk.Run.
func Compute(g *graph.Graph, w feature.Weights, local2global []int32, res *walk.Result, pos, neg []int32, opts Options) (*Gradient, error) {
	if res == nil {
		return nil, ErrNoResult
	}

	n := int(g.NodeHigh())
	labeled := make(map[int32]bool, len(pos)+len(neg))
	for _, u := range pos {
		labeled[u] = true
	}
	for _, u := range neg {
		labeled[u] = true
	}

	// Replay state: residuals evolve exactly as in the walk; dr and dp
	// are sparse per-node feature->partial maps.
	r := make([]float64, n)
	walk.Seed(g, r)
	dr := make(map[int32]map[int32]float64, n)
	dp := make(map[int32]map[int32]float64, len(labeled))

	for _, u := range res.Pushes {
		mass := r[u]
		drU := dr[u]
		delete(dr, u)
		r[u] = 0

		if labeled[u] && len(drU) > 0 {
			acc := dp[u]
			if acc == nil {
				acc = make(map[int32]float64, len(drU))
				dp[u] = acc
			}
			for f, d := range drU {
				acc[f] += opts.Alpha * d
			}
		}

		lo, hi := g.OutEdges(u)
		if lo == hi {
			continue // dangling: the absorbed mass carries no derivative onward
		}
		ws := walk.NodeWeights(g, w, local2global, opts.Squash, u)
		dws := nodeWeightDerivs(g, w, local2global, opts.Squash, u, ws)

		onward := 1 - opts.Alpha
		for e := lo; e < hi; e++ {
			v := g.Dest(e)
			i := int(e - lo)
			var acc map[int32]float64
			grow := func(f int32, d float64) {
				if d == 0 {
					return
				}
				if acc == nil {
					if acc = dr[v]; acc == nil {
						acc = make(map[int32]float64)
						dr[v] = acc
					}
				}
				acc[f] += d
			}
			for f, d := range drU {
				grow(f, onward*d*ws[i])
			}
			for f, derivs := range dws {
				grow(f, onward*mass*derivs[i])
			}
		}
	}

	return chainLoss(g, w, res, dp, pos, neg, opts), nil
}

// Example runs the walk forward and differentiates it in one call, the
// unit of work one training worker performs per grounded example.
func Example(g *graph.Graph, w feature.Weights, local2global []int32, pos, neg []int32, wopts walk.Options, opts Options) (*walk.Result, *Gradient, error) {
	opts.Alpha = wopts.Alpha
	opts.Squash = wopts.Squash
	res, err := walk.Run(g, w, local2global, wopts)
	if err != nil {
		return nil, nil, err
	}
	grad, err := Compute(g, w, local2global, res, pos, neg, opts)
	if err != nil {
		return nil, nil, err
	}
	return res, grad, nil
}

// nodeWeightDerivs returns, per feature on any of u's outgoing edges, the
// derivative of each normalized edge weight with respect to that feature:
// dw_e = (dt_e - w_e * dT) / T with t = squash(score) and T the row sum.
func nodeWeightDerivs(g *graph.Graph, w feature.Weights, local2global []int32, k squash.Kind, u int32, ws []float64) map[int32][]float64 {
	lo, hi := g.OutEdges(u)
	deg := int(hi - lo)

	// dt[f][i] = d t_{e_i} / d theta_f, and the row-sum total.
	dt := make(map[int32][]float64)
	total := 0.0
	for e := lo; e < hi; e++ {
		total += k.Value(walk.EdgeScore(g, w, local2global, e))
		slope := k.Deriv(walk.EdgeScore(g, w, local2global, e))
		if slope == 0 {
			continue
		}
		llo, lhi := g.EdgeLabels(e)
		for l := llo; l < lhi; l++ {
			fid, lw := g.LabelAt(l)
			if local2global != nil {
				fid = local2global[fid]
			}
			arr := dt[fid]
			if arr == nil {
				arr = make([]float64, deg)
				dt[fid] = arr
			}
			arr[e-lo] += slope * lw
		}
	}

	for f, arr := range dt {
		dT := 0.0
		for _, d := range arr {
			dT += d
		}
		for i := range arr {
			arr[i] = (arr[i] - ws[i]*dT) / total
		}
		dt[f] = arr
	}
	return dt
}

// chainLoss folds dLoss/dp into the tape's dp/dtheta and adds L2
// shrinkage on every touched weight.
func chainLoss(g *graph.Graph, w feature.Weights, res *walk.Result, dp map[int32]map[int32]float64, pos, neg []int32, opts Options) *Gradient {
	grad := &Gradient{ByFeature: make(map[int32]float64)}

	solutions := make(map[int32]bool)
	for _, u := range g.SolutionNodes() {
		solutions[u] = true
	}

	accumulate := func(u int32, dLdp float64) {
		for f, d := range dp[u] {
			grad.ByFeature[f] += dLdp * d
		}
	}

	for _, u := range pos {
		if !solutions[u] {
			grad.Unreachable++
			continue
		}
		p := clip(res.P[u])
		grad.Loss += -math.Log(p)
		accumulate(u, -1/p)
	}
	for _, u := range neg {
		if !solutions[u] {
			grad.Unreachable++
			continue
		}
		p := clip(res.P[u])
		grad.Loss += -math.Log(1 - p)
		accumulate(u, 1/(1-p))
	}

	scale := opts.Mu * opts.RegScale
	if scale != 0 {
		for f := range grad.ByFeature {
			v := w.Get(f)
			grad.ByFeature[f] += 2 * scale * v
			grad.RegLoss += scale * v * v
		}
	}
	return grad
}

func clip(p float64) float64 {
	if p < probClip {
		return probClip
	}
	if p > 1-probClip {
		return 1 - probClip
	}
	return p
}
