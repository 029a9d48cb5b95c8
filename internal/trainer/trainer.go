// Package trainer runs the regularized SGD loop over a dataset of labeled
// grounded examples. Examples are embarrassingly parallel: each worker
// walks and differentiates one graph against a consistent snapshot of the
// weight vector, and gradients are merged at a barrier once per batch so
// no update is lost and no read sees a half-written weight.
package trainer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proofrank/internal/feature"
	"proofrank/internal/srw"
	"proofrank/internal/walk"
)

// Config holds the training hyperparameters.
type Config struct {
	// Epochs caps full passes over the dataset.
	Epochs int
	// Tolerance stops training early once the relative reduction in
	// average loss across an epoch falls below it.
	Tolerance float64
	// Eta is the learning rate.
	Eta float64
	// Mu is the L2 shrinkage strength; RegDecay multiplies it per epoch.
	Mu       float64
	RegDecay float64
	// Workers bounds concurrent examples; BatchSize is the merge barrier
	// interval.
	Workers   int
	BatchSize int
	// Walk parameterizes the forward pass.
	Walk walk.Options
}

// DefaultConfig mirrors the original system's training defaults.
func DefaultConfig() Config {
	return Config{
		Epochs:    5,
		Tolerance: 1e-4,
		Eta:       1.0,
		Mu:        0.001,
		RegDecay:  1.0,
		Workers:   4,
		BatchSize: 16,
		Walk:      walk.DefaultOptions(),
	}
}

// EpochSummary reports one epoch of training.
type EpochSummary struct {
	Epoch int
	// AvgLoss is the average raw loss over the dataset, computed from
	// the post-epoch weight snapshot.
	AvgLoss float64
	// RegLoss is the total regularization penalty added during the
	// epoch's gradient passes.
	RegLoss float64
	// Examples and Skipped count processed vs dropped examples;
	// Unreachable counts labels missing from solution nodes.
	Examples    int
	Skipped     int
	Unreachable int
	// Uncovered counts examples whose walk exhausted its push budget.
	Uncovered int
	Pushes    int
	Duration  time.Duration
}

// Trainer drives epochs over a dataset.
type Trainer struct {
	cfg    Config
	logger *zap.Logger
}

// New returns a trainer for cfg.
func New(cfg Config, logger *zap.Logger) *Trainer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Trainer{cfg: cfg, logger: logger}
}

// Train runs up to cfg.Epochs over ds, starting from w, and returns the
// trained vector with per-epoch summaries. w itself is not mutated.
// Cancelling ctx stops submitting new examples; in-flight examples run to
// completion.
func (t *Trainer) Train(ctx context.Context, ds *Dataset, w feature.Weights) (feature.Weights, []EpochSummary, error) {
	runID := uuid.NewString()
	logger := t.logger.With(zap.String("run", runID))

	stats := ds.Stats()
	logger.Info("training started",
		zap.Int("examples", stats.Examples),
		zap.Int("skipped", stats.Skipped),
		zap.Int("min_nodes", stats.MinNodes),
		zap.Int("max_nodes", stats.MaxNodes),
		zap.Float64("mean_nodes", stats.MeanNodes),
		zap.Int("epochs", t.cfg.Epochs),
		zap.Int("workers", t.cfg.Workers))

	weights := w.Clone()
	var summaries []EpochSummary
	prevLoss := math.Inf(1)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if ctx.Err() != nil {
			return weights, summaries, ctx.Err()
		}
		summary, err := t.runEpoch(ctx, ds, &weights, epoch)
		if err != nil {
			return weights, summaries, err
		}
		summaries = append(summaries, summary)
		logger.Info("epoch finished",
			zap.Int("epoch", epoch),
			zap.Float64("avg_loss", summary.AvgLoss),
			zap.Float64("reg_loss", summary.RegLoss),
			zap.Int("pushes", summary.Pushes),
			zap.Int("uncovered", summary.Uncovered),
			zap.Duration("elapsed", summary.Duration))

		if epoch > 1 && prevLoss > 0 {
			rel := (prevLoss - summary.AvgLoss) / math.Abs(prevLoss)
			if rel >= 0 && rel < t.cfg.Tolerance {
				logger.Info("converged", zap.Int("epoch", epoch), zap.Float64("relative_improvement", rel))
				break
			}
		}
		prevLoss = summary.AvgLoss
	}
	return weights, summaries, nil
}

func (t *Trainer) runEpoch(ctx context.Context, ds *Dataset, weights *feature.Weights, epoch int) (EpochSummary, error) {
	start := time.Now()
	summary := EpochSummary{Epoch: epoch}
	regScale := math.Pow(t.cfg.RegDecay, float64(epoch-1))
	opts := srw.Options{Mu: t.cfg.Mu, RegScale: regScale}

	for lo := 0; lo < len(ds.Examples); lo += t.cfg.BatchSize {
		hi := lo + t.cfg.BatchSize
		if hi > len(ds.Examples) {
			hi = len(ds.Examples)
		}
		if err := t.runBatch(ctx, ds.Examples[lo:hi], weights, opts, &summary); err != nil {
			return summary, err
		}
	}

	// Aggregate loss must come from a consistent post-epoch snapshot, so
	// the batch-local loss figures are discarded in favor of a loss-only
	// pass over the final weights.
	avg, err := t.evalLoss(ctx, ds, *weights)
	if err != nil {
		return summary, err
	}
	summary.AvgLoss = avg
	summary.Duration = time.Since(start)
	return summary, nil
}

// runBatch computes gradients for one batch against a snapshot taken at
// the barrier, then merges and applies them under a single lock.
func (t *Trainer) runBatch(ctx context.Context, batch []*Example, weights *feature.Weights, opts srw.Options, summary *EpochSummary) error {
	snapshot := weights.Clone()
	merged := make(map[int32]float64)
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(t.cfg.Workers)
	for _, ex := range batch {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res, grad, err := srw.Example(ex.Graph, snapshot, ex.Local2Global, ex.Pos, ex.Neg, t.cfg.Walk, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Skipped++
				t.logger.Warn("skipping example", zap.String("query", ex.Query), zap.Error(err))
				return nil
			}
			for f, g := range grad.ByFeature {
				merged[f] += g
			}
			summary.Examples++
			summary.RegLoss += grad.RegLoss
			summary.Unreachable += grad.Unreachable + ex.Unmatched
			summary.Pushes += len(res.Pushes)
			if res.BudgetExhausted {
				summary.Uncovered++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for f, g := range merged {
		weights.Add(f, -t.cfg.Eta*g)
	}
	return nil
}

// evalLoss walks every example once against the given snapshot and
// averages the raw loss.
func (t *Trainer) evalLoss(ctx context.Context, ds *Dataset, snapshot feature.Weights) (float64, error) {
	if len(ds.Examples) == 0 {
		return 0, nil
	}
	total := 0.0
	counted := 0
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(t.cfg.Workers)
	for _, ex := range ds.Examples {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res, err := walk.Run(ex.Graph, snapshot, ex.Local2Global, t.cfg.Walk)
			if err != nil {
				return nil // already counted as a skip during the epoch
			}
			loss, _ := srw.RawLoss(ex.Graph, res, ex.Pos, ex.Neg)
			mu.Lock()
			total += loss
			counted++
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	if counted == 0 {
		return 0, nil
	}
	return total / float64(counted), nil
}
