package skeleton

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/raster/rastertest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParameters() Parameters {
	p := DefaultParameters()
	p.Diffusion.Iterations = 20
	return p
}

func newEngine(t *testing.T, params Parameters, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(rastertest.Geometry{}, params, logger.NewNop(), opts...)
	require.NoError(t, err)
	return e
}

func dumbbell() *raster.Mask {
	return rastertest.Dumbbell(64, 33, 14, 49, 16, 10, 7)
}

func assertInside(t *testing.T, skeleton, frame *raster.Mask) {
	t.Helper()
	for y := 0; y < skeleton.Height; y++ {
		for x := 0; x < skeleton.Width; x++ {
			if !skeleton.On(x, y) {
				continue
			}
			assert.True(t, frame.On(x, y), "(%d,%d) outside foreground", x, y)
			assert.False(t, raster.IsBorder(x, y, frame.Width, frame.Height), "(%d,%d) on border", x, y)
		}
	}
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr bool
	}{
		{"default", func(*Parameters) {}, false},
		{"zero gamma", func(p *Parameters) { p.Gamma = 0 }, true},
		{"negative epsilon", func(p *Parameters) { p.Epsilon = -1 }, true},
		{"bad angle", func(p *Parameters) { p.Pruning.ArcAngleThreshold = 200 }, true},
		{"bad diffusion", func(p *Parameters) { p.Diffusion.TimeStep = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameters)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetParametersTogglesPruning(t *testing.T) {
	e := newEngine(t, testParameters())

	require.NoError(t, e.SetParameters(2.0, 1.5, 30))
	p := e.Parameters()
	assert.Equal(t, 2.0, p.Gamma)
	assert.Equal(t, 1.5, p.Epsilon)
	assert.True(t, p.Pruning.Enabled)
	assert.Equal(t, 30.0, p.Pruning.ArcAngleThreshold)

	require.NoError(t, e.SetParameters(2.0, 1.5, 0))
	assert.False(t, e.Parameters().Pruning.Enabled)

	err := e.SetParameters(0, 1.5, 10)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Equal(t, 2.0, e.Parameters().Gamma, "rejected update must not apply")
}

func TestAccessorsBeforeCompute(t *testing.T) {
	e := newEngine(t, testParameters())
	_, err := e.Skeleton()
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = e.DistanceField()
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = e.FluxField()
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestComputeRejectsDegenerateFrames(t *testing.T) {
	e := newEngine(t, testParameters())
	ctx := context.Background()

	assert.ErrorIs(t, e.Compute(ctx, nil, false), ErrEmptyFrame)
	assert.ErrorIs(t, e.Compute(ctx, raster.MustMask(10, 10), false), ErrEmptyFrame)
	assert.ErrorIs(t, e.Compute(ctx, raster.MustMask(2, 10), false), ErrFrameTooSmall)
	assert.ErrorIs(t, e.Compute(ctx, rastertest.Rect(12, 12, 0, 0, 11, 11), false), ErrNoBackground)
	assert.ErrorIs(t, e.Compute(ctx, rastertest.Rect(12, 12, 0, 0, 11, 11), true), ErrNoBackground)

	_, err := e.Skeleton()
	assert.ErrorIs(t, err, ErrNoResult, "failed computations must not store a result")
}

type noContours struct{ rastertest.Geometry }

func (noContours) TraceContours(*raster.Mask) ([]raster.Point, error) { return nil, nil }

func TestComputeEmptyContour(t *testing.T) {
	e, err := NewEngine(noContours{}, testParameters(), nil)
	require.NoError(t, err)
	err = e.Compute(context.Background(), rastertest.Rect(10, 10, 2, 2, 7, 7), false)
	assert.ErrorIs(t, err, ErrEmptyContour)
}

func TestComputeDumbbellStaysConnected(t *testing.T) {
	params := testParameters()
	params.Pruning.Enabled = true
	params.Pruning.ArcAngleThreshold = 5
	e := newEngine(t, params)
	frame := dumbbell()

	require.NoError(t, e.Compute(context.Background(), frame, false))
	result, err := e.Result()
	require.NoError(t, err)

	assertInside(t, result.Skeleton, frame)
	assert.True(t, result.Skeleton.SubsetOf(result.Unpruned))
	assert.Equal(t, 1, rastertest.Components(result.Unpruned))
	assert.Equal(t, 1, rastertest.Components(result.Skeleton))

	var left, right bool
	for _, p := range result.Skeleton.Points() {
		left = left || p.X <= 26
		right = right || p.X >= 37
	}
	assert.True(t, left && right, "skeleton must span both lobes")
	assert.Less(t, result.FluxThreshold, float32(0))
}

func TestDiffusionResultIsSubsetOfRaw(t *testing.T) {
	frame := dumbbell()

	raw := newEngine(t, testParameters())
	require.NoError(t, raw.Compute(context.Background(), frame, false))
	rawResult, err := raw.Result()
	require.NoError(t, err)

	smoothed := newEngine(t, testParameters())
	require.NoError(t, smoothed.Compute(context.Background(), frame, true))
	smoothedResult, err := smoothed.Result()
	require.NoError(t, err)

	assert.True(t, smoothedResult.Diffused)
	assert.True(t, smoothedResult.Unpruned.SubsetOf(rawResult.Unpruned))
	assert.True(t, smoothedResult.Skeleton.SubsetOf(rawResult.Skeleton))
	assertInside(t, smoothedResult.Skeleton, frame)
}

func TestComputeHonoursCancellation(t *testing.T) {
	e := newEngine(t, testParameters())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Compute(ctx, dumbbell(), true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccessorsReturnCopies(t *testing.T) {
	e := newEngine(t, testParameters())
	require.NoError(t, e.Compute(context.Background(), dumbbell(), false))

	s, err := e.Skeleton()
	require.NoError(t, err)
	count := s.Count()
	for i := range s.Data {
		s.Data[i] = 1
	}
	again, err := e.Skeleton()
	require.NoError(t, err)
	assert.Equal(t, count, again.Count())

	d, err := e.DistanceField()
	require.NoError(t, err)
	d.Set(14, 16, -1)
	d2, err := e.DistanceField()
	require.NoError(t, err)
	assert.Greater(t, d2.At(14, 16), float32(0))

	f, err := e.FluxField()
	require.NoError(t, err)
	assert.Equal(t, float32(0), f.At(0, 0))
}

type clearingFilter struct{ calls int }

func (f *clearingFilter) RemoveShortBoundaryBranches(skeleton, contour *raster.Mask) (*raster.Mask, error) {
	f.calls++
	return raster.MustMask(skeleton.Width, skeleton.Height), nil
}

func TestBranchFilterIsApplied(t *testing.T) {
	filter := &clearingFilter{}
	e := newEngine(t, testParameters(), WithBranchFilter(filter))
	require.NoError(t, e.Compute(context.Background(), dumbbell(), false))

	assert.Equal(t, 1, filter.calls)
	s, err := e.Skeleton()
	require.NoError(t, err)
	assert.Zero(t, s.Count())
}

func TestComputeLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEngine(rastertest.Geometry{}, testParameters(), logger.NewZerolog(&buf, zerolog.InfoLevel))
	require.NoError(t, err)

	require.NoError(t, e.Compute(context.Background(), dumbbell(), false))
	assert.Contains(t, buf.String(), `"component":"SkeletonEngine"`)
	assert.Contains(t, buf.String(), "skeleton computed")
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// A filled square has the two diagonals as medial axis. The raw pass keeps
// them; the diffused pass collapses to a cluster around the centre.
func TestComputeFilledSquare(t *testing.T) {
	const size, lo, hi, c = 33, 6, 26, 16
	frame := rastertest.Rect(size, size, lo, lo, hi, hi)

	nearDiagonal := func(t *testing.T, m *raster.Mask) {
		t.Helper()
		for _, p := range m.Points() {
			dx, dy := absInt(p.X-c), absInt(p.Y-c)
			assert.LessOrEqual(t, absInt(dx-dy), 1, "(%d,%d) off the diagonals", p.X, p.Y)
		}
	}

	var raw *Result
	for _, angle := range []float64{0, 30, 60, 120} {
		t.Run(fmt.Sprintf("raw angle=%g", angle), func(t *testing.T) {
			params := DefaultParameters()
			params.Pruning.Enabled = angle > 0
			params.Pruning.ArcAngleThreshold = angle
			e := newEngine(t, params)
			require.NoError(t, e.Compute(context.Background(), frame, false))
			result, err := e.Result()
			require.NoError(t, err)

			assertInside(t, result.Unpruned, frame)
			assertInside(t, result.Skeleton, frame)
			assert.True(t, result.Skeleton.SubsetOf(result.Unpruned))
			assert.Greater(t, result.Skeleton.Count(), 0)
			nearDiagonal(t, result.Unpruned)
			nearDiagonal(t, result.Skeleton)
			assert.Equal(t, 1, rastertest.Components(result.Unpruned))
			assert.True(t, result.Unpruned.On(c, c), "centre missing")

			for _, dir := range [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
				var reached bool
				for _, p := range result.Unpruned.Points() {
					dx, dy := (p.X-c)*dir[0], (p.Y-c)*dir[1]
					reached = reached || (dx >= 4 && dy >= 4)
				}
				assert.True(t, reached, "diagonal arm %v missing", dir)
			}
			if angle == 0 {
				raw = result
			}
		})
	}
	require.NotNil(t, raw)

	e := newEngine(t, DefaultParameters())
	require.NoError(t, e.Compute(context.Background(), frame, true))
	smoothed, err := e.Result()
	require.NoError(t, err)

	require.Greater(t, smoothed.Skeleton.Count(), 0)
	assertInside(t, smoothed.Skeleton, frame)
	assert.True(t, smoothed.Skeleton.SubsetOf(raw.Skeleton))
	assert.Less(t, smoothed.Skeleton.Count(), raw.Skeleton.Count())

	var sx, sy float64
	points := smoothed.Skeleton.Points()
	for _, p := range points {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	assert.InDelta(t, c, sx/float64(len(points)), 1.5)
	assert.InDelta(t, c, sy/float64(len(points)), 1.5)
}
