package graph

import (
	"errors"
	"fmt"
)

// ErrConsistency wraps every build-time violation of the graph invariants.
// A consistency failure is fatal for the one graph being built, never for
// the enclosing batch.
var ErrConsistency = errors.New("graph: inconsistent")

// Builder assembles a Graph through the ordered append protocol:
// intern features, then per node in ascending id order append its edges,
// and per edge append its labels, then Build. Builders are single-use and
// not safe for concurrent use.
type Builder struct {
	labelFeatureID []int32
	labelWeight    []float64

	edgeDest     []int32
	edgeLabelsLo []int32
	edgeLabelsHi []int32

	nodeNearLo []int32
	nodeNearHi []int32

	index             int32
	labelDependencies int

	featureIDs   map[string]int32
	featureNames []string

	built bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{featureIDs: make(map[string]int32)}
}

// SetIndex declares the bound of the reserved start-node prefix.
func (b *Builder) SetIndex(i int32) { b.index = i }

// SetLabelDependencies records the cross-rule dependency count.
func (b *Builder) SetLabelDependencies(n int) { b.labelDependencies = n }

// Feature interns a feature name into the record-local library and
// returns its local id (first-seen order, starting at 1).
func (b *Builder) Feature(name string) int32 {
	if id, ok := b.featureIDs[name]; ok {
		return id
	}
	id := int32(len(b.featureNames) + 1)
	b.featureIDs[name] = id
	b.featureNames = append(b.featureNames, name)
	return id
}

// StartNode opens the next node and returns its id. Nodes must be opened
// in ascending id order; a node with no AddEdge calls gets an empty edge
// range.
func (b *Builder) StartNode() int32 {
	id := int32(len(b.nodeNearLo))
	e := int32(len(b.edgeDest))
	b.nodeNearLo = append(b.nodeNearLo, e)
	b.nodeNearHi = append(b.nodeNearHi, e)
	return id
}

// AddEdge appends an edge from the currently open node to dest.
func (b *Builder) AddEdge(dest int32) error {
	if len(b.nodeNearLo) == 0 {
		return fmt.Errorf("%w: AddEdge before StartNode", ErrConsistency)
	}
	l := int32(len(b.labelFeatureID))
	b.edgeDest = append(b.edgeDest, dest)
	b.edgeLabelsLo = append(b.edgeLabelsLo, l)
	b.edgeLabelsHi = append(b.edgeLabelsHi, l)
	b.nodeNearHi[len(b.nodeNearHi)-1]++
	return nil
}

// AddLabel appends a (feature, weight) label to the currently open edge.
func (b *Builder) AddLabel(localFeatureID int32, weight float64) error {
	if len(b.edgeDest) == 0 {
		return fmt.Errorf("%w: AddLabel before AddEdge", ErrConsistency)
	}
	if localFeatureID < 1 || int(localFeatureID) > len(b.featureNames) {
		return fmt.Errorf("%w: label feature id %d outside library of %d features",
			ErrConsistency, localFeatureID, len(b.featureNames))
	}
	b.labelFeatureID = append(b.labelFeatureID, localFeatureID)
	b.labelWeight = append(b.labelWeight, weight)
	b.edgeLabelsHi[len(b.edgeLabelsHi)-1]++
	return nil
}

// Build freezes the arrays into an immutable Graph after validating every
// invariant a frozen graph guarantees.
func (b *Builder) Build() (*Graph, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder reused", ErrConsistency)
	}
	b.built = true

	g := &Graph{
		labelFeatureID:    b.labelFeatureID,
		labelWeight:       b.labelWeight,
		edgeDest:          b.edgeDest,
		edgeLabelsLo:      b.edgeLabelsLo,
		edgeLabelsHi:      b.edgeLabelsHi,
		nodeNearLo:        b.nodeNearLo,
		nodeNearHi:        b.nodeNearHi,
		nodeHigh:          int32(len(b.nodeNearLo)),
		index:             b.index,
		labelDependencies: b.labelDependencies,
		featureNames:      b.featureNames,
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	return g, nil
}

// check verifies the frozen-graph invariants: destinations in range, node
// ranges exactly partitioning the edge array, and label ranges exactly
// partitioning the label arrays.
func (g *Graph) check() error {
	if g.index < 0 || g.index > g.nodeHigh {
		return fmt.Errorf("%w: start-node prefix %d outside [0, %d]", ErrConsistency, g.index, g.nodeHigh)
	}
	for e, d := range g.edgeDest {
		if d < 0 || d >= g.nodeHigh {
			return fmt.Errorf("%w: edge %d destination %d outside [0, %d)", ErrConsistency, e, d, g.nodeHigh)
		}
	}
	var cursor int32
	for u := int32(0); u < g.nodeHigh; u++ {
		if g.nodeNearLo[u] != cursor || g.nodeNearHi[u] < g.nodeNearLo[u] {
			return fmt.Errorf("%w: node %d edge range [%d, %d) breaks partition at %d",
				ErrConsistency, u, g.nodeNearLo[u], g.nodeNearHi[u], cursor)
		}
		cursor = g.nodeNearHi[u]
	}
	if int(cursor) != len(g.edgeDest) {
		return fmt.Errorf("%w: node ranges cover %d of %d edges", ErrConsistency, cursor, len(g.edgeDest))
	}
	cursor = 0
	for e := range g.edgeDest {
		lo, hi := g.edgeLabelsLo[e], g.edgeLabelsHi[e]
		if lo != cursor || hi < lo {
			return fmt.Errorf("%w: edge %d label range [%d, %d) breaks partition at %d",
				ErrConsistency, e, lo, hi, cursor)
		}
		cursor = hi
	}
	if int(cursor) != len(g.labelFeatureID) {
		return fmt.Errorf("%w: label ranges cover %d of %d labels", ErrConsistency, cursor, len(g.labelFeatureID))
	}
	if len(g.labelFeatureID) != len(g.labelWeight) {
		return fmt.Errorf("%w: label arrays disagree (%d ids, %d weights)",
			ErrConsistency, len(g.labelFeatureID), len(g.labelWeight))
	}
	for i, id := range g.labelFeatureID {
		if id < 1 || int(id) > len(g.featureNames) {
			return fmt.Errorf("%w: label %d feature id %d outside library of %d features",
				ErrConsistency, i, id, len(g.featureNames))
		}
	}
	return nil
}
