package raster

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldRejectsInvalidSize(t *testing.T) {
	_, err := NewField(0, 10)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = NewMask(10, -1)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestFieldMinMax(t *testing.T) {
	f := MustField(3, 2)
	copy(f.Data, []float32{1, -4, 2, 7, 0, 3})

	minVal, maxVal := f.MinMax()
	assert.Equal(t, float32(-4), minVal)
	assert.Equal(t, float32(7), maxVal)
}

func TestIsBorder(t *testing.T) {
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 3, true},
		{4, 0, true},
		{9, 5, true},
		{5, 7, true},
		{1, 1, false},
		{8, 6, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBorder(tt.x, tt.y, 10, 8), "(%d,%d)", tt.x, tt.y)
	}
}

func TestMaskAndSubset(t *testing.T) {
	a := MustMask(3, 1)
	b := MustMask(3, 1)
	copy(a.Data, []uint8{255, 255, 0})
	copy(b.Data, []uint8{1, 0, 1})

	and, err := a.And(b)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 0}, and.Data)
	assert.True(t, and.SubsetOf(a))
	assert.True(t, and.SubsetOf(b))
	assert.False(t, a.SubsetOf(b))

	_, err = a.And(MustMask(2, 1))
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	const n = 100003
	visits := make([]int32, n)
	ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visits[i], 1)
		}
	})
	for i, v := range visits {
		if v != 1 {
			t.Fatalf("index %d visited %d times", i, v)
		}
	}
}

func TestFirstDerivativeOfLinearRamp(t *testing.T) {
	f := MustField(5, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			f.Set(x, y, float32(3*x+2*y))
		}
	}

	dx, dy := FirstDerivative(f)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			wantX, wantY := float32(3), float32(2)
			if x == 0 || x == 4 {
				wantX = 0
			}
			if y == 0 || y == 3 {
				wantY = 0
			}
			assert.Equal(t, wantX, dx.At(x, y), "dx(%d,%d)", x, y)
			assert.Equal(t, wantY, dy.At(x, y), "dy(%d,%d)", x, y)
		}
	}
}

func TestSecondDerivativeOfQuadratic(t *testing.T) {
	f := MustField(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			f.Set(x, y, float32(x*x+x*y+2*y*y))
		}
	}

	dxx, dxy, dyy := SecondDerivative(f)
	assert.Equal(t, float32(2), dxx.At(2, 2))
	assert.Equal(t, float32(1), dxy.At(2, 2))
	assert.Equal(t, float32(4), dyy.At(2, 2))

	assert.Equal(t, float32(0), dxx.At(0, 2))
	assert.Equal(t, float32(0), dxy.At(2, 0))
	assert.Equal(t, float32(0), dyy.At(2, 4))
}
