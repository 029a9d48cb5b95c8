package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proofrank/internal/feature"
	"proofrank/internal/grounder"
	"proofrank/internal/trainer"
	"proofrank/internal/walk"
)

var (
	answerProgram string
	answerQueries string
	answerParams  string
	answerOut     string
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Rank each query's solutions with the personalized walk",
	Long: `Grounds every query, runs the approximate personalized walk under
the trained feature weights, and
writes a solutions file: a "# proved" header per query followed by
rank/score/solution lines with scores summing to one.`,
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().StringVar(&answerProgram, "program", "", "Mangle program file (rules and facts)")
	answerCmd.Flags().StringVar(&answerQueries, "queries", "", "queries file (query per line, labels ignored)")
	answerCmd.Flags().StringVar(&answerParams, "params", "", "trained params file (optional; untrained weights default to 1)")
	answerCmd.Flags().StringVar(&answerOut, "out", "", "output solutions file")
	_ = answerCmd.MarkFlagRequired("program")
	_ = answerCmd.MarkFlagRequired("queries")
	_ = answerCmd.MarkFlagRequired("out")
}

type answered struct {
	grounded *grounder.Grounded
	ranked   []walk.Scored
	elapsed  time.Duration
	err      error
}

func runAnswer(cmd *cobra.Command, args []string) error {
	prog, queries, err := loadProgramAndQueries(answerProgram, answerQueries)
	if err != nil {
		return err
	}
	wopts, err := cfg.WalkOptions()
	if err != nil {
		return err
	}

	dict := feature.NewDictionary()
	weights := feature.NewWeights(dict)
	if answerParams != "" {
		f, err := os.Open(answerParams)
		if err != nil {
			return fmt.Errorf("open params %s: %w", answerParams, err)
		}
		n, err := trainer.LoadParams(f, dict, &weights)
		f.Close()
		if err != nil {
			return err
		}
		logger.Info("params loaded", zap.Int("weights", n), zap.String("path", answerParams))
	}

	// Queries are independent: ground and walk them in parallel, then
	// write in input order so the output is stable.
	results := make([]answered, len(queries))
	eg, _ := errgroup.WithContext(cmd.Context())
	eg.SetLimit(cfg.Train.Workers)
	for i, lq := range queries {
		eg.Go(func() error {
			start := time.Now()
			gr, err := prog.Ground(lq.Query)
			if err != nil {
				results[i] = answered{err: err}
				return nil
			}
			l2g, err := gr.Graph.AlignFeatures(dict)
			if err != nil {
				results[i] = answered{err: err}
				return nil
			}
			res, err := walk.Run(gr.Graph, weights, l2g, wopts)
			if err != nil {
				results[i] = answered{err: err}
				return nil
			}
			if res.BudgetExhausted {
				logger.Warn("push budget exhausted",
					zap.String("query", lq.Query),
					zap.Float64("uncovered", res.Uncovered()))
			}
			results[i] = answered{grounded: gr, ranked: res.Solutions, elapsed: time.Since(start)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	out, err := os.Create(answerOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", answerOut, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	answeredCount, skipped := 0, 0
	for i, r := range results {
		if r.err != nil {
			skipped++
			logger.Warn("skipping query", zap.String("query", queries[i].Query), zap.Error(r.err))
			continue
		}
		if err := grounder.WriteSolutions(w, r.grounded, r.ranked, r.elapsed); err != nil {
			return err
		}
		answeredCount++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logger.Info("answering finished",
		zap.Int("answered", answeredCount),
		zap.Int("skipped", skipped),
		zap.String("out", answerOut))
	return nil
}
