// Package grounder is the boundary to the logic-program side of the
// system: it evaluates a Mangle program against its fact store and lowers
// each query's derivations into a grounded proof graph, honoring the
// ordered append protocol and the frozen-graph invariants. It also owns
// the examples-file and solutions-file formats that surround the engine.
package grounder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"proofrank/internal/graph"
)

// Grounded is one query's proof graph plus the node-id to ground-atom
// mapping the graph itself does not carry.
type Grounded struct {
	Query string
	Graph *graph.Graph
	// NodeText maps node id to the ground solution atom it stands for;
	// reserved nodes map to "".
	NodeText []string
}

// SolutionID resolves a ground atom text to its node id.
func (g *Grounded) SolutionID(text string) (int32, bool) {
	for u, t := range g.NodeText {
		if t != "" && t == text {
			return int32(u), true
		}
	}
	return 0, false
}

// Program is an analyzed Mangle program with all rules evaluated to a
// fixed point, ready to be grounded against.
type Program struct {
	info   *analysis.ProgramInfo
	store  factstore.FactStore
	logger *zap.Logger
}

// LoadProgram parses, analyzes and evaluates src (Mangle rules and facts).
func LoadProgram(src string, logger *zap.Logger) (*Program, error) {
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze program: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if err := mengine.EvalProgram(info, store); err != nil {
		return nil, fmt.Errorf("evaluate program: %w", err)
	}
	logger.Debug("program evaluated", zap.Int("predicates", len(info.Decls)))
	return &Program{info: info, store: store, logger: logger}, nil
}

// Ground builds the proof graph for one query atom, e.g.
// "reachable(/a, X)". Node 0 is the reserved start node; every derived
// atom matching the query's constant positions becomes a solution leaf,
// reached by an edge labeled with a predicate-level feature shared across
// solutions and an atom-level feature specific to the one derivation.
func (p *Program) Ground(query string) (*Grounded, error) {
	clean := strings.TrimSpace(query)
	q, err := parse.Atom(clean)
	if err != nil {
		// The grammar wants a trailing period on some atom forms.
		q, err = parse.Atom(clean + ".")
		if err != nil {
			return nil, fmt.Errorf("parse query %q: %w", query, err)
		}
	}

	var matches []string
	err = p.store.GetFacts(ast.NewQuery(q.Predicate), func(a ast.Atom) error {
		if atomMatches(q, a) {
			matches = append(matches, a.String())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", q.Predicate.Symbol, err)
	}
	sort.Strings(matches)

	b := graph.NewBuilder()
	b.SetIndex(1)
	predFeature := b.Feature("db(" + q.Predicate.Symbol + ")")
	atomFeatures := make([]int32, len(matches))
	for i, m := range matches {
		atomFeatures[i] = b.Feature("id(" + m + ")")
	}

	start := b.StartNode()
	for i := range matches {
		if err := b.AddEdge(start + 1 + int32(i)); err != nil {
			return nil, err
		}
		if err := b.AddLabel(predFeature, 1.0); err != nil {
			return nil, err
		}
		if err := b.AddLabel(atomFeatures[i], 1.0); err != nil {
			return nil, err
		}
	}
	for range matches {
		b.StartNode()
	}
	g, err := b.Build()
	if err != nil {
		return nil, err
	}

	text := make([]string, len(matches)+1)
	copy(text[1:], matches)
	p.logger.Debug("grounded query",
		zap.String("query", query),
		zap.Int("solutions", len(matches)))
	return &Grounded{Query: query, Graph: g, NodeText: text}, nil
}

// atomMatches reports whether fact satisfies the query's bound positions.
// Variables in the query match anything; constants must match exactly.
func atomMatches(q, fact ast.Atom) bool {
	if len(q.Args) != len(fact.Args) {
		return false
	}
	for i, arg := range q.Args {
		if _, ok := arg.(ast.Variable); ok {
			continue
		}
		if arg.String() != fact.Args[i].String() {
			return false
		}
	}
	return true
}
