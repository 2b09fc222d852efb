package shape

import (
	"testing"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*Backend, *memory.Manager) {
	t.Helper()
	mats := memory.NewManager(logger.NewNop(), 0)
	t.Cleanup(mats.Shutdown)
	return NewBackend(mats, logger.NewNop()), mats
}

func rect(w, h, x0, y0, x1, y1 int) *raster.Mask {
	m := raster.MustMask(w, h)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Set(x, y, 255)
		}
	}
	return m
}

func TestDistanceTransform(t *testing.T) {
	b, mats := newBackend(t)
	mask := rect(21, 21, 5, 5, 15, 15)

	d, err := b.DistanceTransform(mask)
	require.NoError(t, err)

	assert.Equal(t, float32(0), d.At(0, 0))
	// The 3x3 L2 mask approximates Euclidean distance.
	assert.InDelta(t, 1, d.At(5, 10), 0.1)
	assert.InDelta(t, 6, d.At(10, 10), 0.5)
	assert.Greater(t, d.At(10, 10), d.At(7, 10))
	assert.Zero(t, mats.Stats().ActiveMats, "Mats must be released")
}

func TestTraceContoursOfRectangle(t *testing.T) {
	b, _ := newBackend(t)
	mask := rect(20, 20, 4, 4, 13, 11)

	points, err := b.TraceContours(mask)
	require.NoError(t, err)
	// Perimeter of a 10x8 rectangle.
	assert.Len(t, points, 2*(10+8)-4)
	for _, p := range points {
		assert.True(t, p.X == 4 || p.X == 13 || p.Y == 4 || p.Y == 11, "point %v not on the boundary", p)
	}

	contour, err := b.ContourMask(mask)
	require.NoError(t, err)
	assert.Equal(t, 2*(10+8)-4, contour.Count())
}

func TestTraceContoursIncludesHoles(t *testing.T) {
	b, _ := newBackend(t)
	mask := rect(30, 30, 3, 3, 26, 26)
	for y := 12; y <= 17; y++ {
		for x := 12; x <= 17; x++ {
			mask.Set(x, y, 0)
		}
	}

	contour, err := b.ContourMask(mask)
	require.NoError(t, err)
	assert.True(t, contour.On(3, 10))
	assert.True(t, contour.On(11, 14), "inner boundary must be traced")
}

func TestGradientOfRamp(t *testing.T) {
	b, _ := newBackend(t)
	f := raster.MustField(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			f.Set(x, y, float32(2*x))
		}
	}

	dx, dy, err := b.Gradient(f)
	require.NoError(t, err)
	// 3x3 Sobel weights the central difference by 4.
	assert.InDelta(t, 16, dx.At(5, 5), 1e-4)
	assert.InDelta(t, 0, dy.At(5, 5), 1e-4)
}

func TestDilate(t *testing.T) {
	b, _ := newBackend(t)
	mask := raster.MustMask(9, 9)
	mask.Set(4, 4, 1)

	out, err := b.Dilate(mask, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, out.Count())
	assert.True(t, out.On(3, 5))
	assert.False(t, out.On(2, 4))

	_, err = b.Dilate(mask, -1)
	assert.Error(t, err)
}

func TestBackendReportsAllocationFailures(t *testing.T) {
	mats := memory.NewManager(logger.NewNop(), 0, memory.WithLimit(64))
	t.Cleanup(mats.Shutdown)
	b := NewBackend(mats, logger.NewNop())
	mask := rect(21, 21, 5, 5, 15, 15)

	_, err := b.DistanceTransform(mask)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distance transform")
	assert.Contains(t, err.Error(), "memory limit exceeded for distance_src")

	_, _, err = b.Gradient(raster.MustField(21, 21))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gradient_src")

	_, err = b.Dilate(mask, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dilate_src")

	assert.Zero(t, mats.Stats().ActiveMats)
}
