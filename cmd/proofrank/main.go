// Command proofrank answers and trains queries over grounded proof
// graphs: it grounds a logic program's queries into proof graphs, ranks
// reachable solutions with an approximate personalized random walk, and
// fits the walk's feature weights to labeled examples by SGD.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proofrank/internal/config"
	"proofrank/internal/logging"
	"proofrank/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Shared state built in PersistentPreRunE
	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "proofrank",
	Short: "proofrank - personalized-PageRank inference over grounded logic programs",
	Long: `proofrank converts logic-program queries into grounded proof graphs and
ranks their reachable solutions with an approximate personalized random
walk. Edge weights are parameterized by learned feature weights, trained
by regularized SGD against labeled examples.

Subcommands cover the three phases: ground (build proof graphs), answer
(rank solutions), train (fit feature weights).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openCache returns the configured ground-record cache, or nil when the
// durable cache is disabled.
func openCache() (*store.Cache, error) {
	if cfg.Cache.Path == "" {
		return nil, nil
	}
	return store.Open(cfg.Cache.Path, logger.Named("store"))
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	rootCmd.AddCommand(groundCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(trainCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
