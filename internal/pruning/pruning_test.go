package pruning

import (
	"testing"

	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/raster/rastertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInscribedCircleRadius(t *testing.T) {
	tests := []struct {
		distance float32
		want     int
	}{
		{0, 1},
		{0.3, 1},
		{1.4, 1},
		{2.6, 3},
		{7.5, 8},
	}
	for _, tt := range tests {
		c := NewInscribedCircle(raster.Point{X: 5, Y: 5}, tt.distance)
		assert.Equal(t, tt.want, c.Radius, "distance %v", tt.distance)
		assert.True(t, c.Spurious)
	}
}

func TestSearchTouchingPointsOpposite(t *testing.T) {
	contour := raster.MustMask(21, 21)
	contour.Set(7, 10, 1)
	contour.Set(13, 10, 1)
	contour.Set(11, 10, 1) // inside the circle

	c := NewInscribedCircle(raster.Point{X: 10, Y: 10}, 3)
	c.SearchTouchingPoints(contour, 3, 1.414*4)

	require.True(t, c.HasTouch())
	assert.Equal(t, 2, c.Touches)
	assert.InDelta(t, 180, c.ArcAngle, 1e-9)
	assert.ElementsMatch(t, []raster.Point{{X: 7, Y: 10}, {X: 13, Y: 10}}, []raster.Point{c.TouchA, c.TouchB})
}

func TestSearchTouchingPointsRightAngle(t *testing.T) {
	contour := raster.MustMask(21, 21)
	contour.Set(14, 10, 1)
	contour.Set(10, 6, 1)

	c := NewInscribedCircle(raster.Point{X: 10, Y: 10}, 4)
	c.SearchTouchingPoints(contour, 3, 1.414*4)

	require.True(t, c.HasTouch())
	assert.InDelta(t, 90, c.ArcAngle, 1e-9)
}

func TestSearchTouchingPointsOutsideBand(t *testing.T) {
	contour := raster.MustMask(41, 41)
	contour.Set(17, 20, 1)
	contour.Set(20, 25, 1)

	c := NewInscribedCircle(raster.Point{X: 20, Y: 20}, 3)
	c.SearchTouchingPoints(contour, 3, 1)

	assert.Equal(t, 1, c.Touches)
	assert.False(t, c.HasTouch())
	assert.True(t, c.Spurious)
}

func TestSearchWindowEndIsExclusive(t *testing.T) {
	contour := raster.MustMask(41, 41)
	contour.Set(14, 20, 1)
	contour.Set(26, 20, 1)

	c := NewInscribedCircle(raster.Point{X: 20, Y: 20}, 3)
	c.SearchTouchingPoints(contour, 3, 10)

	assert.Equal(t, 1, c.Touches)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"enabled", func(c *Config) { c.Enabled = true; c.ArcAngleThreshold = 45 }, false},
		{"negative angle", func(c *Config) { c.ArcAngleThreshold = -1 }, true},
		{"angle above 180", func(c *Config) { c.ArcAngleThreshold = 181 }, true},
		{"negative margin", func(c *Config) { c.Margin = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigEffectiveValues(t *testing.T) {
	c := Config{ArcAngleThreshold: 30, Margin: 3}
	assert.Equal(t, 0.0, c.EffectiveThreshold())
	c.Enabled = true
	assert.Equal(t, 30.0, c.EffectiveThreshold())

	assert.InDelta(t, 1.414*4, c.EffectiveTolerance(), 1e-12)
	c.Tolerance = 2
	assert.Equal(t, 2.0, c.EffectiveTolerance())
}

// bar returns a filled rectangle, its distance field, its contour mask and a
// hand-drawn medial line with a stray pixel next to the boundary.
func bar(t *testing.T) (mask, skeleton *raster.Mask, distance *raster.Field, contour *raster.Mask) {
	t.Helper()
	g := rastertest.Geometry{}
	mask = rastertest.Rect(40, 20, 5, 5, 34, 14)
	distance, err := g.DistanceTransform(mask)
	require.NoError(t, err)
	contour, err = g.ContourMask(mask)
	require.NoError(t, err)

	skeleton = raster.MustMask(40, 20)
	for x := 8; x <= 31; x++ {
		skeleton.Set(x, 9, 1)
	}
	skeleton.Set(6, 6, 1)
	skeleton.Set(0, 9, 1)
	return mask, skeleton, distance, contour
}

func prune(t *testing.T, config Config, skeleton *raster.Mask, distance *raster.Field, contour *raster.Mask) *raster.Mask {
	t.Helper()
	p, err := NewPruner(config)
	require.NoError(t, err)
	out, _, err := p.Prune(skeleton, distance, contour)
	require.NoError(t, err)
	return out
}

func TestPruneNeverAddsPixelsAndSkipsBorder(t *testing.T) {
	_, skeleton, distance, contour := bar(t)
	config := DefaultConfig()
	config.Enabled = true
	config.ArcAngleThreshold = 20

	out := prune(t, config, skeleton, distance, contour)
	assert.True(t, out.SubsetOf(skeleton))
	assert.False(t, out.On(0, 9))
	assert.True(t, out.On(20, 9), "medial pixel should survive")
}

func TestPruneIsIdempotent(t *testing.T) {
	_, skeleton, distance, contour := bar(t)
	config := DefaultConfig()
	config.Enabled = true
	config.ArcAngleThreshold = 120

	once := prune(t, config, skeleton, distance, contour)
	twice := prune(t, config, once, distance, contour)
	assert.Equal(t, once.Data, twice.Data)
}

func TestPruneIsMonotonicInThreshold(t *testing.T) {
	_, skeleton, distance, contour := bar(t)
	previous := skeleton
	for _, angle := range []float64{0, 30, 60, 90, 120, 150, 175} {
		config := DefaultConfig()
		config.Enabled = angle > 0
		config.ArcAngleThreshold = angle
		out := prune(t, config, skeleton, distance, contour)
		assert.True(t, out.SubsetOf(previous), "threshold %v added pixels", angle)
		previous = out
	}
}

func TestDisabledKeepsEveryTouchedCircle(t *testing.T) {
	_, skeleton, distance, contour := bar(t)
	config := DefaultConfig()
	config.ArcAngleThreshold = 170 // ignored while disabled

	p, err := NewPruner(config)
	require.NoError(t, err)
	out, circles, err := p.Prune(skeleton, distance, contour)
	require.NoError(t, err)

	kept := 0
	for _, c := range circles {
		assert.Equal(t, !c.HasTouch(), c.Spurious, "circle at %v", c.Center)
		if c.HasTouch() {
			kept++
		}
	}
	assert.Equal(t, kept, out.Count())
}

func TestPruneSizeMismatch(t *testing.T) {
	p, err := NewPruner(DefaultConfig())
	require.NoError(t, err)
	_, _, err = p.Prune(raster.MustMask(10, 10), raster.MustField(10, 11), raster.MustMask(10, 10))
	assert.ErrorIs(t, err, raster.ErrSizeMismatch)
}
