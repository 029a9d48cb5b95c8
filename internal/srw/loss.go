package srw

import (
	"math"

	"proofrank/internal/graph"
	"proofrank/internal/walk"
)

// RawLoss computes the pos/neg log loss of a walk result without the
// tape: -log p for positives, -log(1-p) for negatives, labels missing
// from the solution set counted as unreachable and skipped. Used for
// post-epoch loss reporting where no gradient is needed.
func RawLoss(g *graph.Graph, res *walk.Result, pos, neg []int32) (loss float64, unreachable int) {
	solutions := make(map[int32]bool)
	for _, u := range g.SolutionNodes() {
		solutions[u] = true
	}
	for _, u := range pos {
		if !solutions[u] {
			unreachable++
			continue
		}
		loss += -math.Log(clip(res.P[u]))
	}
	for _, u := range neg {
		if !solutions[u] {
			unreachable++
			continue
		}
		loss += -math.Log(1 - clip(res.P[u]))
	}
	return loss, unreachable
}
