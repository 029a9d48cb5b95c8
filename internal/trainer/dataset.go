package trainer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"proofrank/internal/feature"
	"proofrank/internal/graph"
	"proofrank/internal/grounder"
	"proofrank/internal/store"
)

// Example is one labeled grounded query, fully parsed and resolved so
// epochs iterate it without touching text again.
type Example struct {
	Query        string
	Graph        *graph.Graph
	Local2Global []int32
	Pos, Neg     []int32
	// Unmatched counts labeled solutions that did not resolve to a node;
	// they contribute no gradient for their sign.
	Unmatched int
}

// Dataset is the cached, already-parsed example set an epoch restarts
// from.
type Dataset struct {
	Examples []*Example
	// Skipped counts queries dropped for grounding or parse failures.
	Skipped int
}

// Stats summarizes dataset size for run reports.
type Stats struct {
	Examples  int
	Skipped   int
	MinNodes  int
	MaxNodes  int
	MeanNodes float64
}

// Stats computes the node-count distribution across the dataset.
func (d *Dataset) Stats() Stats {
	s := Stats{Examples: len(d.Examples), Skipped: d.Skipped, MinNodes: math.MaxInt}
	total := 0
	for _, ex := range d.Examples {
		n := ex.Graph.NodeSize()
		total += n
		if n < s.MinNodes {
			s.MinNodes = n
		}
		if n > s.MaxNodes {
			s.MaxNodes = n
		}
	}
	if len(d.Examples) == 0 {
		s.MinNodes = 0
		return s
	}
	s.MeanNodes = float64(total) / float64(len(d.Examples))
	return s
}

// LoadDataset grounds (or fetches from cache) every labeled query and
// resolves its labels to node ids. Per-query failures are logged and
// counted, never fatal for the batch. prog may be nil when every query is
// expected to hit the cache; cache and memo may be nil to disable them.
func LoadDataset(prog *grounder.Program, queries []grounder.LabeledQuery, dict *feature.Dictionary, cache *store.Cache, memo *store.Memo, logger *zap.Logger) (*Dataset, error) {
	ds := &Dataset{}
	for _, lq := range queries {
		ex, err := loadExample(prog, lq, dict, cache, memo)
		if err != nil {
			ds.Skipped++
			logger.Warn("skipping example",
				zap.String("query", lq.Query),
				zap.Error(err))
			continue
		}
		if ex.Unmatched > 0 {
			logger.Debug("labeled solutions missing from proof graph",
				zap.String("query", lq.Query),
				zap.Int("unmatched", ex.Unmatched))
		}
		ds.Examples = append(ds.Examples, ex)
	}
	return ds, nil
}

func loadExample(prog *grounder.Program, lq grounder.LabeledQuery, dict *feature.Dictionary, cache *store.Cache, memo *store.Memo) (*Example, error) {
	var gr *grounder.Grounded

	if cache != nil {
		record, nodeText, ok, err := cache.Get(lq.Query)
		if err != nil {
			return nil, err
		}
		if ok {
			g, err := parseRecord(record, memo)
			if err != nil {
				return nil, err
			}
			gr = &grounder.Grounded{Query: lq.Query, Graph: g, NodeText: nodeText}
		}
	}
	if gr == nil {
		if prog == nil {
			return nil, fmt.Errorf("query %q not cached and no program loaded", lq.Query)
		}
		var err error
		gr, err = prog.Ground(lq.Query)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			if err := cache.Put(lq.Query, gr.Graph.String(), gr.NodeText); err != nil {
				return nil, err
			}
		}
	}

	l2g, err := gr.Graph.AlignFeatures(dict)
	if err != nil {
		return nil, err
	}
	ex := &Example{
		Query:        lq.Query,
		Graph:        gr.Graph,
		Local2Global: l2g,
	}
	for _, text := range lq.Pos {
		if id, ok := gr.SolutionID(text); ok {
			ex.Pos = append(ex.Pos, id)
		} else {
			ex.Unmatched++
		}
	}
	for _, text := range lq.Neg {
		if id, ok := gr.SolutionID(text); ok {
			ex.Neg = append(ex.Neg, id)
		} else {
			ex.Unmatched++
		}
	}
	return ex, nil
}

func parseRecord(record string, memo *store.Memo) (*graph.Graph, error) {
	if memo != nil {
		if g := memo.Get(record); g != nil {
			return g, nil
		}
	}
	g, err := graph.Parse(record)
	if err != nil {
		return nil, err
	}
	if memo != nil {
		memo.Put(record, g)
	}
	return g, nil
}
