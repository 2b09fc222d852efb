package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/skeleton"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, skeleton.DefaultParameters(), cfg.EngineParameters())
	assert.False(t, cfg.Diffusion.Enabled)
	assert.False(t, cfg.Branches.Enabled)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
skeleton:
  gamma: 1.5
pruning:
  enabled: true
  arc_angle_threshold: 45
diffusion:
  enabled: true
  iterations: 20
branches:
  enabled: true
  min_branch_length: 30
output:
  format: webp
`))
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.Skeleton.Gamma)
	assert.Equal(t, 1.0, cfg.Skeleton.Epsilon)
	assert.True(t, cfg.Pruning.Enabled)
	assert.Equal(t, 45.0, cfg.Pruning.ArcAngleThreshold)
	assert.Equal(t, 3, cfg.Pruning.Margin)
	assert.True(t, cfg.Diffusion.Enabled)
	assert.Equal(t, 20, cfg.Diffusion.Iterations)
	assert.Equal(t, float32(0.05), cfg.Diffusion.TimeStep)
	assert.Equal(t, 30, cfg.Branches.MinBranchLength)
	assert.Equal(t, 9, cfg.Branches.DilateKernel)
	assert.Equal(t, "webp", cfg.Output.Format)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative gamma", "skeleton:\n  gamma: -1\n"},
		{"angle above 180", "pruning:\n  arc_angle_threshold: 200\n"},
		{"time step too large", "diffusion:\n  time_step: 0.5\n"},
		{"zero dilate kernel", "branches:\n  dilate_kernel: 0\n"},
		{"binary threshold", "input:\n  binary_threshold: 300\n"},
		{"output format", "output:\n  format: pdf\n"},
		{"log level", "logging:\n  level: loud\n"},
		{"malformed", "skeleton: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hjs.yaml")

	cfg := Default()
	cfg.Skeleton.Gamma = 3
	cfg.Pruning.Enabled = true
	cfg.Pruning.ArcAngleThreshold = 90
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyToParams(t *testing.T) {
	cfg := Default()
	cfg.Skeleton.Gamma = 1.25
	cfg.Pruning.Enabled = true
	cfg.Pruning.ArcAngleThreshold = 60
	cfg.Diffusion.Enabled = true

	params := map[string]interface{}{"unrelated": "kept"}
	cfg.ApplyToParams(params)

	assert.Equal(t, "kept", params["unrelated"])
	assert.Equal(t, 1.25, params["gamma"])
	assert.Equal(t, 60.0, params["arc_angle_threshold"])
	assert.Equal(t, true, params["diffusion"])

	settings := hjs.ParseSettings(params)
	assert.Equal(t, cfg.EngineParameters(), settings.Parameters)
	assert.True(t, settings.Diffusion)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hjs.yaml")
	require.NoError(t, Default().SaveToFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config, err error) {
		if err != nil {
			return
		}
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("skeleton:\n  gamma: 4\n"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Skeleton.Gamma == 4.0 {
				return
			}
		case <-timeout:
			t.Fatal("configuration was not reloaded")
		}
	}
}
