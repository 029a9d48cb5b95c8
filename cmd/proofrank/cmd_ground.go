package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proofrank/internal/grounder"
)

var (
	groundProgram string
	groundQueries string
	groundOut     string
)

var groundCmd = &cobra.Command{
	Use:   "ground",
	Short: "Ground queries against a logic program into proof-graph records",
	Long: `Evaluates the Mangle program, grounds every query from the queries file
into a proof graph, and writes one serialized ground record per line.
Records are also stored in the ground-record cache when one is configured,
so later train/answer runs skip re-grounding.`,
	RunE: runGround,
}

func init() {
	groundCmd.Flags().StringVar(&groundProgram, "program", "", "Mangle program file (rules and facts)")
	groundCmd.Flags().StringVar(&groundQueries, "queries", "", "queries file (query per line, labels ignored)")
	groundCmd.Flags().StringVar(&groundOut, "out", "", "output ground file")
	_ = groundCmd.MarkFlagRequired("program")
	_ = groundCmd.MarkFlagRequired("queries")
	_ = groundCmd.MarkFlagRequired("out")
}

func runGround(cmd *cobra.Command, args []string) error {
	prog, queries, err := loadProgramAndQueries(groundProgram, groundQueries)
	if err != nil {
		return err
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	out, err := os.Create(groundOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", groundOut, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	grounded, skipped := 0, 0
	for _, lq := range queries {
		gr, err := prog.Ground(lq.Query)
		if err != nil {
			skipped++
			logger.Warn("skipping query", zap.String("query", lq.Query), zap.Error(err))
			continue
		}
		record := gr.Graph.String()
		if _, err := fmt.Fprintln(w, record); err != nil {
			return err
		}
		if cache != nil {
			if err := cache.Put(lq.Query, record, gr.NodeText); err != nil {
				return err
			}
		}
		grounded++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logger.Info("grounding finished",
		zap.Int("grounded", grounded),
		zap.Int("skipped", skipped),
		zap.String("out", groundOut))
	return nil
}

// loadProgramAndQueries reads the Mangle program and the query lines; the
// queries file uses the examples format so labeled files work unchanged.
func loadProgramAndQueries(programPath, queriesPath string) (*grounder.Program, []grounder.LabeledQuery, error) {
	src, err := os.ReadFile(programPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read program %s: %w", programPath, err)
	}
	prog, err := grounder.LoadProgram(string(src), logger.Named("grounder"))
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(queriesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open queries %s: %w", queriesPath, err)
	}
	defer f.Close()
	queries, bad := grounder.ParseExamples(f)
	for _, err := range bad {
		logger.Warn("skipping query line", zap.Error(err))
	}
	return prog, queries, nil
}
