package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofrank/internal/squash"
)

func TestDefaultResolves(t *testing.T) {
	cfg := Default()

	wopts, err := cfg.WalkOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.1, wopts.Alpha)
	assert.Equal(t, squash.ReLU, wopts.Squash)

	tcfg, err := cfg.TrainerConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, tcfg.Epochs)
	assert.Equal(t, wopts, tcfg.Walk)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
walk:
  alpha: 0.2
  squash: sigmoid
train:
  epochs: 12
cache:
  path: /tmp/ground.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	wopts, err := cfg.WalkOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.2, wopts.Alpha)
	assert.Equal(t, squash.Sigmoid, wopts.Squash)
	assert.Equal(t, Default().Walk.Epsilon, cfg.Walk.Epsilon, "unset keys keep defaults")

	assert.Equal(t, 12, cfg.Train.Epochs)
	assert.Equal(t, "/tmp/ground.db", cfg.Cache.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestBadSquashRejected(t *testing.T) {
	cfg := Default()
	cfg.Walk.Squash = "tanh"
	_, err := cfg.WalkOptions()
	assert.Error(t, err)
	_, err = cfg.TrainerConfig()
	assert.Error(t, err)
}
