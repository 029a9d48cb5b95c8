// Package walk computes the approximate personalized-PageRank distribution
// over one grounded proof graph.
//
// The walk maintains an estimate p and a residual r per node and performs
// selective pushes: the node with the largest residual above its threshold
// moves alpha of its residual into p and distributes the rest across its
// outgoing edges, weighted by the squashed, normalized feature scores.
// Work is bounded by both the epsilon threshold and a hard push budget, so
// the walk always terminates regardless of cycles.
//
// Candidate selection uses a max-heap with lazy invalidation (stale entries
// are skipped on pop by comparing against the live residual), the same
// lazy decrease-key discipline a heap-driven shortest-path search uses.
// Ties between equal residuals break toward the lowest node id, which
// makes the push order, and therefore p and r, bit-for-bit reproducible.
package walk

import (
	"container/heap"
	"errors"
	"sort"

	"proofrank/internal/feature"
	"proofrank/internal/graph"
	"proofrank/internal/squash"
)

// Option validation failures.
var (
	ErrBadAlpha   = errors.New("walk: alpha must be in (0,1)")
	ErrBadEpsilon = errors.New("walk: epsilon must be positive")
	ErrBadBudget  = errors.New("walk: push budget must be positive")
)

// Options parameterize one walk. The zero value is invalid; start from
// DefaultOptions.
type Options struct {
	// Alpha is the reset probability: the share of each push kept as
	// estimate rather than distributed onward.
	Alpha float64
	// Epsilon is the residual threshold, scaled per node by out-degree.
	Epsilon float64
	// MaxPushes bounds total work independent of graph cycles.
	MaxPushes int
	// Squash selects the transition-weight squashing function.
	Squash squash.Kind
}

// DefaultOptions mirror the defaults of the original system.
func DefaultOptions() Options {
	return Options{
		Alpha:     0.1,
		Epsilon:   1e-4,
		MaxPushes: 100000,
		Squash:    squash.ReLU,
	}
}

func (o Options) validate() error {
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return ErrBadAlpha
	}
	if o.Epsilon <= 0 {
		return ErrBadEpsilon
	}
	if o.MaxPushes <= 0 {
		return ErrBadBudget
	}
	return nil
}

// Scored is one ranked solution node.
type Scored struct {
	Node  int32
	Score float64
}

// Result is the full outcome of a walk. P, R and Pushes are consumed by
// the gradient tape; Solutions is the ranked answer distribution.
type Result struct {
	// P and R are the estimate and residual per node id.
	P, R []float64
	// Pushes is the ordered sequence of pushed node ids.
	Pushes []int32
	// Leaked is the mass absorbed at nodes with no outgoing edges; the
	// conservation ledger is sum(P) + sum(R) + Leaked = 1 at all times.
	Leaked float64
	// ResidualMass is sum(R) at termination.
	ResidualMass float64
	// BudgetExhausted is true when MaxPushes ran out while some node was
	// still above threshold; the approximation is then unreliable but
	// still returned.
	BudgetExhausted bool
	// Solutions is P restricted to solution nodes, normalized to sum to
	// one, sorted by descending score then ascending node id.
	Solutions []Scored
}

// Uncovered reports the residual probability mass the walk never pushed,
// nonzero only when the budget was exhausted before convergence.
func (r *Result) Uncovered() float64 {
	if r.BudgetExhausted {
		return r.ResidualMass
	}
	return 0
}

// Run walks g under weights w. local2global translates the graph's
// record-local feature ids to dictionary ids; nil means the graph already
// carries dictionary ids.
func Run(g *graph.Graph, w feature.Weights, local2global []int32, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	n := int(g.NodeHigh())
	res := &Result{
		P: make([]float64, n),
		R: make([]float64, n),
	}
	if n == 0 {
		return res, nil
	}

	starts := Seed(g, res.R)

	edgeWeights := make(map[int32][]float64, n)
	weightsFor := func(u int32) []float64 {
		if ws, ok := edgeWeights[u]; ok {
			return ws
		}
		ws := NodeWeights(g, w, local2global, opts.Squash, u)
		edgeWeights[u] = ws
		return ws
	}

	threshold := func(u int32) float64 {
		return opts.Epsilon * float64(g.OutDegree(u))
	}

	q := &residualQueue{}
	for u := int32(0); u < int32(starts); u++ {
		if res.R[u] > threshold(u) {
			heap.Push(q, entry{node: u, residual: res.R[u]})
		}
	}

	for len(*q) > 0 && len(res.Pushes) < opts.MaxPushes {
		e := heap.Pop(q).(entry)
		u := e.node
		if e.residual != res.R[u] {
			continue // stale entry, a fresher one is queued
		}
		if res.R[u] <= threshold(u) {
			continue
		}

		mass := res.R[u]
		res.Pushes = append(res.Pushes, u)
		res.P[u] += opts.Alpha * mass
		res.R[u] = 0

		lo, hi := g.OutEdges(u)
		if lo == hi {
			// Dangling node: the onward share has nowhere to go and is
			// absorbed. Tracked so the conservation ledger stays exact.
			res.Leaked += (1 - opts.Alpha) * mass
			continue
		}
		ws := weightsFor(u)
		for e := lo; e < hi; e++ {
			v := g.Dest(e)
			res.R[v] += (1 - opts.Alpha) * mass * ws[e-lo]
			if res.R[v] > threshold(v) {
				heap.Push(q, entry{node: v, residual: res.R[v]})
			}
		}
	}

	for u := int32(0); u < int32(n); u++ {
		res.ResidualMass += res.R[u]
		if res.R[u] > threshold(u) {
			res.BudgetExhausted = true
		}
	}
	res.Solutions = rankSolutions(g, res.P)
	return res, nil
}

// Seed places the unit of initial residual mass on the personalization
// set, the reserved start-node prefix, split evenly. A graph with no
// reserved prefix starts at node 0. Returns the start-node count. The
// gradient tape seeds its replay with the same call.
func Seed(g *graph.Graph, r []float64) int {
	starts := int(g.Index())
	if starts == 0 {
		starts = 1
	}
	for u := 0; u < starts; u++ {
		r[u] = 1 / float64(starts)
	}
	return starts
}

// NodeWeights returns the normalized transition weights of u's outgoing
// edges, in edge order: squash(sum of featureWeight*labelWeight) per edge,
// divided by the row sum. Exported for the gradient tape, which needs the
// same weights the walk used.
func NodeWeights(g *graph.Graph, w feature.Weights, local2global []int32, k squash.Kind, u int32) []float64 {
	lo, hi := g.OutEdges(u)
	ws := make([]float64, hi-lo)
	total := 0.0
	for e := lo; e < hi; e++ {
		t := k.Value(EdgeScore(g, w, local2global, e))
		ws[e-lo] = t
		total += t
	}
	for i := range ws {
		ws[i] /= total
	}
	return ws
}

// EdgeScore returns the raw feature-weighted sum of edge e's labels.
func EdgeScore(g *graph.Graph, w feature.Weights, local2global []int32, e int32) float64 {
	lo, hi := g.EdgeLabels(e)
	x := 0.0
	for l := lo; l < hi; l++ {
		fid, lw := g.LabelAt(l)
		if local2global != nil {
			fid = local2global[fid]
		}
		x += w.Get(fid) * lw
	}
	return x
}

// rankSolutions restricts p to solution nodes and normalizes to a
// distribution. An all-zero restriction yields no ranked solutions.
func rankSolutions(g *graph.Graph, p []float64) []Scored {
	nodes := g.SolutionNodes()
	total := 0.0
	for _, u := range nodes {
		total += p[u]
	}
	if total == 0 {
		return nil
	}
	out := make([]Scored, 0, len(nodes))
	for _, u := range nodes {
		if p[u] > 0 {
			out = append(out, Scored{Node: u, Score: p[u] / total})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node < out[j].Node
	})
	return out
}

// entry is a queued (node, residual-at-insert) pair.
type entry struct {
	node     int32
	residual float64
}

// residualQueue is a max-heap on residual, ties toward the lower node id.
type residualQueue []entry

func (q residualQueue) Len() int { return len(q) }
func (q residualQueue) Less(i, j int) bool {
	if q[i].residual != q[j].residual {
		return q[i].residual > q[j].residual
	}
	return q[i].node < q[j].node
}
func (q residualQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *residualQueue) Push(x interface{}) { *q = append(*q, x.(entry)) }
func (q *residualQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
