// Package graph holds the grounded proof graph for a single query.
//
// The graph is a structure-of-arrays digraph: parallel int/float slices
// with explicit index ranges instead of per-node objects. Per-source edges
// occupy the contiguous range [nodeNearLo[u], nodeNearHi[u]) of the edge
// arrays, and per-edge feature labels occupy [edgeLabelsLo[e],
// edgeLabelsHi[e]) of the label arrays. The layout makes the push loop a
// sequential scan and serialization a direct array dump.
//
// A Graph is built once through the ordered append protocol of Builder and
// is immutable afterwards; concurrent readers need no locking.
package graph

import "sort"

// Graph is one query's grounded proof graph. Node ids are implicit
// integers in [0, nodeHigh); the prefix [0, index) holds the reserved
// query/start nodes and [index, nodeHigh) the solution candidates.
type Graph struct {
	// Label arrays, length = total feature assignments across all edges.
	labelFeatureID []int32
	labelWeight    []float64

	// Edge arrays, length = number of edges.
	edgeDest     []int32
	edgeLabelsLo []int32
	edgeLabelsHi []int32

	// Node arrays, length = nodeHigh.
	nodeNearLo []int32
	nodeNearHi []int32

	nodeHigh          int32
	index             int32
	labelDependencies int

	// Feature library of this record, in local-id order (local id i is
	// featureNames[i-1]). labelFeatureID stores these local ids; callers
	// align them with a shared dictionary via AlignFeatures.
	featureNames []string
}

// NodeHigh returns the exclusive upper bound on node ids.
func (g *Graph) NodeHigh() int32 { return g.nodeHigh }

// Index returns the bound of the reserved start-node prefix.
func (g *Graph) Index() int32 { return g.index }

// NodeSize returns the number of non-reserved nodes.
func (g *Graph) NodeSize() int { return int(g.nodeHigh - g.index) }

// EdgeSize returns the number of edges.
func (g *Graph) EdgeSize() int { return len(g.edgeDest) }

// LabelSize returns the total number of feature assignments.
func (g *Graph) LabelSize() int { return len(g.labelFeatureID) }

// LabelDependencies returns the count of features participating in
// cross-rule trainable dependencies. Informational for the trainer.
func (g *Graph) LabelDependencies() int { return g.labelDependencies }

// OutEdges returns the half-open edge range [lo, hi) of node u.
func (g *Graph) OutEdges(u int32) (lo, hi int32) {
	return g.nodeNearLo[u], g.nodeNearHi[u]
}

// OutDegree returns the number of outgoing edges of node u.
func (g *Graph) OutDegree(u int32) int {
	return int(g.nodeNearHi[u] - g.nodeNearLo[u])
}

// Dest returns the destination node of edge e.
func (g *Graph) Dest(e int32) int32 { return g.edgeDest[e] }

// EdgeLabels returns the half-open label range [lo, hi) of edge e.
func (g *Graph) EdgeLabels(e int32) (lo, hi int32) {
	return g.edgeLabelsLo[e], g.edgeLabelsHi[e]
}

// LabelAt returns the (local feature id, label weight) pair at label
// index i.
func (g *Graph) LabelAt(i int32) (int32, float64) {
	return g.labelFeatureID[i], g.labelWeight[i]
}

// FeatureCount returns the number of distinct local feature ids.
func (g *Graph) FeatureCount() int { return len(g.featureNames) }

// FeatureName resolves a local feature id to its name.
func (g *Graph) FeatureName(local int32) string {
	if local < 1 || int(local) > len(g.featureNames) {
		return ""
	}
	return g.featureNames[local-1]
}

// FeatureSet returns the distinct feature names appearing in any label,
// sorted, independent of multiplicity.
func (g *Graph) FeatureSet() []string {
	seen := make(map[int32]struct{}, len(g.featureNames))
	for _, id := range g.labelFeatureID {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, g.FeatureName(id))
	}
	sort.Strings(out)
	return out
}

// Interner is the subset of the shared feature dictionary the graph needs
// to align its record-local ids with global ids.
type Interner interface {
	Intern(name string) (int32, error)
}

// AlignFeatures interns this record's feature names into dict and returns
// the local-id -> global-id translation, indexed by local id (slot 0
// unused). Weight lookups during the walk go through this table.
func (g *Graph) AlignFeatures(dict Interner) ([]int32, error) {
	out := make([]int32, len(g.featureNames)+1)
	for i, name := range g.featureNames {
		id, err := dict.Intern(name)
		if err != nil {
			return nil, err
		}
		out[i+1] = id
	}
	return out, nil
}

// SolutionNodes returns the non-reserved nodes with no outstanding goals,
// i.e. the leaves reachable as completed proofs, in ascending id order.
func (g *Graph) SolutionNodes() []int32 {
	var out []int32
	for u := g.index; u < g.nodeHigh; u++ {
		if g.nodeNearLo[u] == g.nodeNearHi[u] {
			out = append(out, u)
		}
	}
	return out
}
