package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Ground-record delimiters, shared with the original file format.
const (
	fieldDelim         = "\t"
	featureIndexDelim  = "|"
	srcDstDelim        = ":"
	edgeDelim          = "="
	edgeFeatureDelim   = ","
	featureWeightDelim = "@"
)

// ErrParse wraps malformed ground-record text. Like ErrConsistency it is
// fatal for the single record only.
var ErrParse = errors.New("graph: malformed ground record")

// Serialize renders the graph as one tab-delimited ground-record line:
// node count, edge count, label dependency count, the "|"-joined feature
// library in id order, then one "src:dst=fid@w,..." field per edge with
// same-source edges consecutive. Parse inverts it exactly.
func (g *Graph) Serialize(sb *strings.Builder) {
	sb.WriteString(strconv.Itoa(g.NodeSize()))
	sb.WriteString(fieldDelim)
	sb.WriteString(strconv.Itoa(g.EdgeSize()))
	sb.WriteString(fieldDelim)
	sb.WriteString(strconv.Itoa(g.labelDependencies))
	sb.WriteString(fieldDelim)
	for i, name := range g.featureNames {
		if i > 0 {
			sb.WriteString(featureIndexDelim)
		}
		sb.WriteString(name)
	}
	for u := int32(0); u < g.nodeHigh; u++ {
		for e := g.nodeNearLo[u]; e < g.nodeNearHi[u]; e++ {
			sb.WriteString(fieldDelim)
			sb.WriteString(strconv.Itoa(int(u)))
			sb.WriteString(srcDstDelim)
			sb.WriteString(strconv.Itoa(int(g.edgeDest[e])))
			sb.WriteString(edgeDelim)
			for l := g.edgeLabelsLo[e]; l < g.edgeLabelsHi[e]; l++ {
				if l > g.edgeLabelsLo[e] {
					sb.WriteString(edgeFeatureDelim)
				}
				sb.WriteString(strconv.Itoa(int(g.labelFeatureID[l])))
				sb.WriteString(featureWeightDelim)
				sb.WriteString(strconv.FormatFloat(g.labelWeight[l], 'g', -1, 64))
			}
		}
	}
}

// String returns the serialized record.
func (g *Graph) String() string {
	var sb strings.Builder
	g.Serialize(&sb)
	return sb.String()
}

// Parse reconstructs a Graph from a serialized ground record. The result
// satisfies every frozen-graph invariant or an error wrapping ErrParse or
// ErrConsistency is returned.
func Parse(record string) (*Graph, error) {
	fields := strings.Split(strings.TrimRight(record, "\n"), fieldDelim)
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: %d of 4 header fields", ErrParse, len(fields))
	}
	nodeCount, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: node count %q", ErrParse, fields[0])
	}
	edgeCount, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: edge count %q", ErrParse, fields[1])
	}
	labelDeps, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: label dependency count %q", ErrParse, fields[2])
	}

	b := NewBuilder()
	b.SetLabelDependencies(labelDeps)
	if fields[3] != "" {
		for _, name := range strings.Split(fields[3], featureIndexDelim) {
			b.Feature(name)
		}
	}

	edgeFields := fields[4:]
	if len(edgeFields) != edgeCount {
		return nil, fmt.Errorf("%w: header declares %d edges, record carries %d", ErrParse, edgeCount, len(edgeFields))
	}

	// First pass: the record stores node ids implicitly, so the id space
	// is bounded by the largest endpoint mentioned.
	nodeHigh := 0
	type parsedEdge struct {
		src, dst int
		labels   string
	}
	edges := make([]parsedEdge, 0, len(edgeFields))
	prevSrc := -1
	for _, f := range edgeFields {
		pair, labels, ok := strings.Cut(f, edgeDelim)
		if !ok {
			return nil, fmt.Errorf("%w: edge field %q", ErrParse, f)
		}
		srcText, dstText, ok := strings.Cut(pair, srcDstDelim)
		if !ok {
			return nil, fmt.Errorf("%w: edge endpoints %q", ErrParse, pair)
		}
		src, err := strconv.Atoi(srcText)
		if err != nil {
			return nil, fmt.Errorf("%w: source %q", ErrParse, srcText)
		}
		dst, err := strconv.Atoi(dstText)
		if err != nil {
			return nil, fmt.Errorf("%w: destination %q", ErrParse, dstText)
		}
		if src < prevSrc {
			return nil, fmt.Errorf("%w: source %d after %d, same-source edges must be consecutive", ErrParse, src, prevSrc)
		}
		prevSrc = src
		if src+1 > nodeHigh {
			nodeHigh = src + 1
		}
		if dst+1 > nodeHigh {
			nodeHigh = dst + 1
		}
		edges = append(edges, parsedEdge{src: src, dst: dst, labels: labels})
	}
	if nodeCount > nodeHigh {
		return nil, fmt.Errorf("%w: header declares %d nodes, ids reach only %d", ErrParse, nodeCount, nodeHigh)
	}
	b.SetIndex(int32(nodeHigh - nodeCount))

	next := int32(0)
	for _, pe := range edges {
		for next <= int32(pe.src) {
			b.StartNode()
			next++
		}
		if err := b.AddEdge(int32(pe.dst)); err != nil {
			return nil, err
		}
		if pe.labels == "" {
			continue
		}
		for _, lf := range strings.Split(pe.labels, edgeFeatureDelim) {
			idText, wText, ok := strings.Cut(lf, featureWeightDelim)
			if !ok {
				return nil, fmt.Errorf("%w: label %q", ErrParse, lf)
			}
			id, err := strconv.Atoi(idText)
			if err != nil {
				return nil, fmt.Errorf("%w: label feature id %q", ErrParse, idText)
			}
			w, err := strconv.ParseFloat(wText, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: label weight %q", ErrParse, wText)
			}
			if err := b.AddLabel(int32(id), w); err != nil {
				return nil, err
			}
		}
	}
	for next < int32(nodeHigh) {
		b.StartNode()
		next++
	}
	return b.Build()
}
