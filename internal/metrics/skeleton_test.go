package metrics

import (
	"image"
	"testing"

	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/raster/rastertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func hline(width, height, y, x0, x1 int) *raster.Mask {
	m := raster.MustMask(width, height)
	for x := x0; x <= x1; x++ {
		m.Set(x, y, 1)
	}
	return m
}

func TestCompareIdentical(t *testing.T) {
	c, err := NewComparator(0, nil)
	require.NoError(t, err)

	line := hline(20, 10, 5, 2, 17)
	got, err := c.Compare(line, line.Clone())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, got.Similarity, 1e-9)
	assert.InDelta(t, 1.0, got.Precision, 1e-9)
	assert.InDelta(t, 1.0, got.Recall, 1e-9)
	assert.Equal(t, 16, got.CandidatePixel)
	assert.Equal(t, 16, got.ReferencePixel)
}

func TestCompareShiftedWithinTolerance(t *testing.T) {
	candidate := hline(20, 10, 5, 2, 17)
	reference := hline(20, 10, 6, 2, 17)

	exact, err := NewComparator(0, nil)
	require.NoError(t, err)
	got, err := exact.Compare(candidate, reference)
	require.NoError(t, err)
	assert.Zero(t, got.Similarity)
	assert.Zero(t, got.Precision)

	tolerant, err := NewComparator(1, nil)
	require.NoError(t, err)
	got, err = tolerant.Compare(candidate, reference)
	require.NoError(t, err)
	assert.Zero(t, got.Similarity)
	assert.InDelta(t, 1.0, got.Precision, 1e-9)
	assert.InDelta(t, 1.0, got.Recall, 1e-9)
}

func TestCompareSpuriousBranchLowersPrecision(t *testing.T) {
	reference := hline(20, 10, 5, 2, 17)
	candidate := reference.Clone()
	for y := 0; y < 4; y++ {
		candidate.Set(10, y, 1)
	}

	c, err := NewComparator(0, nil)
	require.NoError(t, err)
	got, err := c.Compare(candidate, reference)
	require.NoError(t, err)

	assert.InDelta(t, 16.0/20.0, got.Precision, 1e-9)
	assert.InDelta(t, 1.0, got.Recall, 1e-9)
	assert.InDelta(t, 16.0/20.0, got.Similarity, 1e-9)
}

func TestCompareErrors(t *testing.T) {
	_, err := NewComparator(-1, nil)
	assert.Error(t, err)

	c, err := NewComparator(0, nil)
	require.NoError(t, err)
	_, err = c.Compare(raster.MustMask(4, 4), raster.MustMask(5, 4))
	assert.Error(t, err)
	_, err = c.Compare(nil, raster.MustMask(4, 4))
	assert.Error(t, err)
}

func TestCompareEmpty(t *testing.T) {
	c, err := NewComparator(1, nil)
	require.NoError(t, err)
	got, err := c.Compare(raster.MustMask(8, 8), raster.MustMask(8, 8))
	require.NoError(t, err)
	assert.Zero(t, got.Similarity)
	assert.Zero(t, got.Precision)
	assert.Zero(t, got.Recall)
}

func TestMorphologicalSkeletonInsideShape(t *testing.T) {
	shape := rastertest.Rect(40, 20, 5, 5, 34, 14)
	skeleton, err := MorphologicalSkeleton(shape, nil)
	require.NoError(t, err)

	assert.Positive(t, skeleton.Count())
	assert.Less(t, skeleton.Count(), shape.Count())
	assert.True(t, skeleton.SubsetOf(shape))
}

func TestOpenCVFailuresAreReturned(t *testing.T) {
	c, err := NewComparator(0, nil)
	require.NoError(t, err)

	a, err := bridge.MaskToMat(raster.MustMask(8, 8), nil, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := bridge.MaskToMat(raster.MustMask(5, 6), nil, "b")
	require.NoError(t, err)
	defer b.Close()

	_, err = c.combine(a, b, opAnd, "mismatched_and")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched_and")

	_, err = c.combine(a, b, opOr, "mismatched_or")
	require.Error(t, err)

	work := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer work.Close()
	skel := gocv.NewMatWithSize(5, 6, gocv.MatTypeCV8UC1)
	defer skel.Close()
	temp := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer temp.Close()
	element := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer element.Close()

	assert.Error(t, morphStep(&work, &skel, &temp, element))
}
