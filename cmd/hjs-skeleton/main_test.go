package main

import (
	"testing"

	"hjs-skeleton/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAppliesOnlySetFlags(t *testing.T) {
	opts := options{gamma: 4, epsilon: 0.5, angle: 45, diffusion: true}

	cfg, err := loadConfig(opts, map[string]bool{"gamma": true, "angle": true})
	require.NoError(t, err)

	params := cfg.EngineParameters()
	assert.Equal(t, 4.0, params.Gamma)
	assert.Equal(t, config.Default().Skeleton.Epsilon, params.Epsilon)
	assert.True(t, params.Pruning.Enabled)
	assert.Equal(t, 45.0, params.Pruning.ArcAngleThreshold)
	assert.False(t, cfg.Diffusion.Enabled)
}

func TestLoadConfigValidatesOverrides(t *testing.T) {
	_, err := loadConfig(options{gamma: 0}, map[string]bool{"gamma": true})
	assert.Error(t, err)

	_, err = loadConfig(options{epsilon: -1}, map[string]bool{"epsilon": true})
	assert.Error(t, err)
}

func TestLogLevelPrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warning"

	t.Setenv("LOG_LEVEL", "")
	level, err := logLevel(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	t.Setenv("LOG_LEVEL", "debug")
	level, err = logLevel(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	level, err = logLevel(cfg, map[string]bool{"log-level": true})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level, "-log-level beats LOG_LEVEL")

	t.Setenv("LOG_LEVEL", "loud")
	level, err = logLevel(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestMemoryOptions(t *testing.T) {
	memOpts, err := memoryOptions(options{})
	require.NoError(t, err)
	assert.Empty(t, memOpts)

	memOpts, err = memoryOptions(options{memLimit: 64})
	require.NoError(t, err)
	assert.Len(t, memOpts, 1)

	_, err = memoryOptions(options{memLimit: -1})
	assert.Error(t, err)
}
