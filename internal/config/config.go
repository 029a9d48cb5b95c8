// Package config holds the run configuration for grounding, inference and
// training, loaded from YAML with CLI flags layered on top by the
// commands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"proofrank/internal/squash"
	"proofrank/internal/trainer"
	"proofrank/internal/walk"
)

// Config is the full run configuration.
type Config struct {
	Walk  WalkConfig  `yaml:"walk"`
	Train TrainConfig `yaml:"train"`
	Cache CacheConfig `yaml:"cache"`
}

// WalkConfig parameterizes the personalized walk.
type WalkConfig struct {
	Alpha     float64 `yaml:"alpha"`
	Epsilon   float64 `yaml:"epsilon"`
	MaxPushes int     `yaml:"max_pushes"`
	Squash    string  `yaml:"squash"` // relu, exp, sigmoid
}

// TrainConfig parameterizes the SGD loop.
type TrainConfig struct {
	Epochs    int     `yaml:"epochs"`
	Eta       float64 `yaml:"eta"`
	Mu        float64 `yaml:"mu"`
	RegDecay  float64 `yaml:"reg_decay"`
	Tolerance float64 `yaml:"tolerance"`
	Workers   int     `yaml:"workers"`
	BatchSize int     `yaml:"batch_size"`
}

// CacheConfig parameterizes the ground-record cache.
type CacheConfig struct {
	// Path is the SQLite cache file; empty disables the durable cache.
	Path string `yaml:"path"`
	// MemoEntries bounds the in-memory parsed-graph memo.
	MemoEntries int `yaml:"memo_entries"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	w := walk.DefaultOptions()
	t := trainer.DefaultConfig()
	return Config{
		Walk: WalkConfig{
			Alpha:     w.Alpha,
			Epsilon:   w.Epsilon,
			MaxPushes: w.MaxPushes,
			Squash:    w.Squash.String(),
		},
		Train: TrainConfig{
			Epochs:    t.Epochs,
			Eta:       t.Eta,
			Mu:        t.Mu,
			RegDecay:  t.RegDecay,
			Tolerance: t.Tolerance,
			Workers:   t.Workers,
			BatchSize: t.BatchSize,
		},
		Cache: CacheConfig{MemoEntries: 1000},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// WalkOptions resolves the walk section into engine options.
func (c Config) WalkOptions() (walk.Options, error) {
	kind, err := squash.Parse(c.Walk.Squash)
	if err != nil {
		return walk.Options{}, err
	}
	return walk.Options{
		Alpha:     c.Walk.Alpha,
		Epsilon:   c.Walk.Epsilon,
		MaxPushes: c.Walk.MaxPushes,
		Squash:    kind,
	}, nil
}

// TrainerConfig resolves the train and walk sections into a trainer
// configuration.
func (c Config) TrainerConfig() (trainer.Config, error) {
	wopts, err := c.WalkOptions()
	if err != nil {
		return trainer.Config{}, err
	}
	return trainer.Config{
		Epochs:    c.Train.Epochs,
		Eta:       c.Train.Eta,
		Mu:        c.Train.Mu,
		RegDecay:  c.Train.RegDecay,
		Tolerance: c.Train.Tolerance,
		Workers:   c.Train.Workers,
		BatchSize: c.Train.BatchSize,
		Walk:      wopts,
	}, nil
}
