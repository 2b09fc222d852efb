package diffusion

import (
	"context"
	"testing"

	"hjs-skeleton/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pyramid(size int) *raster.Field {
	f := raster.MustField(size, size)
	c := size / 2
	for y := 2; y < size-2; y++ {
		for x := 2; x < size-2; x++ {
			d := c - max(abs(x-c), abs(y-c)) - 1
			if d > 0 {
				f.Set(x, y, float32(d))
			}
		}
	}
	return f
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative iterations", func(c *Config) { c.Iterations = -1 }},
		{"zero time step", func(c *Config) { c.TimeStep = 0 }},
		{"unstable time step", func(c *Config) { c.TimeStep = 1 }},
		{"negative tangent weight", func(c *Config) { c.TangentWeight = -0.1 }},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := NewSmoother(cfg)
			assert.Error(t, err)
		})
	}
}

func TestSmoothKeepsBackgroundAtZero(t *testing.T) {
	field := pyramid(21)
	s, err := NewSmoother(Config{Iterations: 10, TimeStep: 0.05, TangentWeight: 0.5, Epsilon: 1e-7})
	require.NoError(t, err)

	out, err := s.Smooth(context.Background(), field)
	require.NoError(t, err)

	for i, v := range field.Data {
		if v == 0 {
			assert.Equal(t, float32(0), out.Data[i], "index %d", i)
		}
	}
}

func TestSmoothDoesNotModifyInput(t *testing.T) {
	field := pyramid(15)
	before := field.Clone()
	s, err := NewSmoother(DefaultConfig())
	require.NoError(t, err)

	_, err = s.Smooth(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, before.Data, field.Data)
}

func TestSmoothZeroIterationsIsIdentity(t *testing.T) {
	field := pyramid(11)
	s, err := NewSmoother(Config{Iterations: 0, TimeStep: 0.05, TangentWeight: 0.5, Epsilon: 1e-7})
	require.NoError(t, err)

	out, err := s.Smooth(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, field.Data, out.Data)
}

func TestSmoothHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewSmoother(DefaultConfig())
	require.NoError(t, err)
	_, err = s.Smooth(ctx, pyramid(11))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNormalTangentOnPlaneIsZero(t *testing.T) {
	f := raster.MustField(6, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			f.Set(x, y, float32(x+2*y))
		}
	}

	dxixi, detaeta := NormalTangentSecondDerivatives(f, 1e-7)
	assert.InDelta(t, 0, dxixi.At(3, 3), 1e-6)
	assert.InDelta(t, 0, detaeta.At(3, 3), 1e-6)
}

func TestNormalTangentOfIsotropicBowl(t *testing.T) {
	f := raster.MustField(7, 7)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			f.Set(x, y, float32((x-3)*(x-3)+(y-3)*(y-3)))
		}
	}

	dxixi, detaeta := NormalTangentSecondDerivatives(f, 1e-7)
	assert.InDelta(t, 2, dxixi.At(4, 4), 1e-5)
	assert.InDelta(t, 2, detaeta.At(4, 4), 1e-5)
}

func TestNormalTangentCrossTermSign(t *testing.T) {
	f := raster.MustField(6, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			f.Set(x, y, float32(x*y))
		}
	}

	// Ix=3, Iy=2, Ixy=1, Ixx=Iyy=0 at (2,3).
	dxixi, detaeta := NormalTangentSecondDerivatives(f, 1e-7)
	assert.InDelta(t, -12.0/13.0, dxixi.At(2, 3), 1e-5)
	assert.InDelta(t, 12.0/13.0, detaeta.At(2, 3), 1e-5)
}
