package hjs

import (
	"context"
	"testing"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/raster/rastertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettingsOverlaysDefaults(t *testing.T) {
	s := ParseSettings(map[string]interface{}{
		"gamma":               1.5,
		"arc_angle_threshold": 40,
		"diffusion":           true,
		"touch_margin":        5.0,
		"branch_removal":      true,
	})

	assert.Equal(t, 1.5, s.Parameters.Gamma)
	assert.Equal(t, 1.0, s.Parameters.Epsilon)
	assert.True(t, s.Parameters.Pruning.Enabled)
	assert.Equal(t, 40.0, s.Parameters.Pruning.ArcAngleThreshold)
	assert.Equal(t, 5, s.Parameters.Pruning.Margin)
	assert.True(t, s.Diffusion)
	assert.True(t, s.Branches.Enabled)
	assert.Equal(t, 9, s.Branches.DilateKernel)
	assert.Equal(t, float32(127), s.BinaryThreshold)

	assert.Equal(t, s, ParseSettings(s.ToParameters()))
}

func TestParseSettingsDisablesPruningAtZero(t *testing.T) {
	s := ParseSettings(NewProcessor(rastertest.Geometry{}, nil, nil).GetDefaultParameters())
	assert.False(t, s.Parameters.Pruning.Enabled)
	assert.False(t, s.Diffusion)
}

func TestValidateParameters(t *testing.T) {
	p := NewProcessor(rastertest.Geometry{}, nil, nil)

	assert.NoError(t, p.ValidateParameters(p.GetDefaultParameters()))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"gamma": 0.0}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"epsilon": -1.0}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"arc_angle_threshold": 200.0}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"diffusion_time_step": 0.5}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"branch_dilate_kernel": 0}))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"binary_threshold": 300.0}))
}

func TestProcessDumbbell(t *testing.T) {
	p := NewProcessor(rastertest.Geometry{}, nil, logger.NewNop())
	_, err := p.LastResult()
	require.ErrorIs(t, err, ErrNoResult)

	mask := rastertest.Dumbbell(64, 33, 14, 49, 16, 10, 7)
	input, err := bridge.MaskToMat(mask, nil, "input")
	require.NoError(t, err)
	defer input.Close()

	params := p.GetDefaultParameters()
	params["arc_angle_threshold"] = 5.0

	out, err := p.ProcessWithContext(context.Background(), input, params)
	require.NoError(t, err)
	defer out.Close()

	skeleton, err := bridge.MatToMask(out)
	require.NoError(t, err)
	assert.Greater(t, skeleton.Count(), 0)
	assert.True(t, skeleton.SubsetOf(mask))
	assert.Equal(t, 1, rastertest.Components(skeleton))

	result, err := p.LastResult()
	require.NoError(t, err)
	assert.Equal(t, skeleton.Count(), result.Skeleton.Count())
	assert.False(t, result.Diffused)
}

func TestProcessHonoursCancellation(t *testing.T) {
	p := NewProcessor(rastertest.Geometry{}, nil, nil)
	input, err := bridge.MaskToMat(rastertest.Rect(20, 20, 4, 4, 15, 15), nil, "input")
	require.NoError(t, err)
	defer input.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProcessWithContext(ctx, input, p.GetDefaultParameters())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessRejectsNilInput(t *testing.T) {
	p := NewProcessor(rastertest.Geometry{}, nil, nil)
	_, err := p.Process(nil, p.GetDefaultParameters())
	assert.Error(t, err)
}
