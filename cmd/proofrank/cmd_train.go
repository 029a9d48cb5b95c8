package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proofrank/internal/feature"
	"proofrank/internal/store"
	"proofrank/internal/trainer"
)

var (
	trainProgram  string
	trainExamples string
	trainParamsIn string
	trainOut      string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit feature weights to labeled examples by regularized SGD",
	Long: `Grounds every labeled query (reusing the ground-record cache across
epochs), then runs the epoch loop: walk each example forward, replay the
gradient tape, and merge the per-example gradients into the shared weight
vector at batch barriers. Stops early when the relative loss improvement
falls below the configured tolerance. Writes the trained params file.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainProgram, "program", "", "Mangle program file (rules and facts)")
	trainCmd.Flags().StringVar(&trainExamples, "examples", "", "labeled examples file (query TAB +/-solution ...)")
	trainCmd.Flags().StringVar(&trainParamsIn, "warm-start", "", "params file to resume from (optional)")
	trainCmd.Flags().StringVar(&trainOut, "out", "", "output params file")
	_ = trainCmd.MarkFlagRequired("program")
	_ = trainCmd.MarkFlagRequired("examples")
	_ = trainCmd.MarkFlagRequired("out")
}

func runTrain(cmd *cobra.Command, args []string) error {
	prog, queries, err := loadProgramAndQueries(trainProgram, trainExamples)
	if err != nil {
		return err
	}
	tcfg, err := cfg.TrainerConfig()
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
	memo := store.NewMemo(cfg.Cache.MemoEntries)

	dict := feature.NewDictionary()
	weights := feature.NewWeights(dict)
	if trainParamsIn != "" {
		f, err := os.Open(trainParamsIn)
		if err != nil {
			return fmt.Errorf("open params %s: %w", trainParamsIn, err)
		}
		n, err := trainer.LoadParams(f, dict, &weights)
		f.Close()
		if err != nil {
			return err
		}
		logger.Info("warm start", zap.Int("weights", n))
	}

	ds, err := trainer.LoadDataset(prog, queries, dict, cache, memo, logger.Named("trainer"))
	if err != nil {
		return err
	}
	if len(ds.Examples) == 0 {
		return fmt.Errorf("no usable examples in %s (%d skipped)", trainExamples, ds.Skipped)
	}

	// Dense weight vector covers every interned feature before workers
	// share it read-only within a batch.
	for len(weights) <= dict.Size() {
		weights = append(weights, feature.DefaultWeight)
	}

	t := trainer.New(tcfg, logger.Named("trainer"))
	trained, summaries, err := t.Train(cmd.Context(), ds, weights)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		logger.Info("epoch summary",
			zap.Int("epoch", s.Epoch),
			zap.Float64("avg_loss", s.AvgLoss),
			zap.Float64("reg_loss", s.RegLoss),
			zap.Int("examples", s.Examples),
			zap.Int("skipped", s.Skipped),
			zap.Int("unreachable", s.Unreachable))
	}

	out, err := os.Create(trainOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", trainOut, err)
	}
	defer out.Close()
	if err := trainer.SaveParams(out, dict, trained); err != nil {
		return err
	}
	logger.Info("training finished",
		zap.Int("features", dict.Size()),
		zap.String("out", trainOut))
	return nil
}
