// Package metrics scores a skeleton against a reference skeleton.
package metrics

import (
	"fmt"
	"image"

	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"

	"gocv.io/x/gocv"
)

// Comparison holds the agreement between a candidate and a reference
// skeleton. Precision and Recall accept matches within the tolerance
// used for the comparison; Similarity is the exact intersection over union.
type Comparison struct {
	Similarity     float64
	Precision      float64
	Recall         float64
	CandidatePixel int
	ReferencePixel int
}

type Comparator struct {
	tolerance int
	tracker   safe.MemoryTracker
}

// NewComparator returns a comparator that counts a pixel as matched when the
// other skeleton has a pixel within tolerance (Chebyshev distance).
func NewComparator(tolerance int, tracker safe.MemoryTracker) (*Comparator, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be non-negative, got: %d", tolerance)
	}
	return &Comparator{tolerance: tolerance, tracker: tracker}, nil
}

func (c *Comparator) Compare(candidate, reference *raster.Mask) (*Comparison, error) {
	if candidate == nil || reference == nil {
		return nil, fmt.Errorf("skeleton is nil")
	}
	if candidate.Width != reference.Width || candidate.Height != reference.Height {
		return nil, fmt.Errorf("skeleton sizes differ: %dx%d vs %dx%d",
			candidate.Width, candidate.Height, reference.Width, reference.Height)
	}

	cand, err := bridge.MaskToMat(candidate, c.tracker, "metrics_candidate")
	if err != nil {
		return nil, err
	}
	defer cand.Close()

	ref, err := bridge.MaskToMat(reference, c.tracker, "metrics_reference")
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	intersection, err := c.combine(cand, ref, opAnd, "metrics_intersection")
	if err != nil {
		return nil, err
	}
	defer intersection.Close()

	union, err := c.combine(cand, ref, opOr, "metrics_union")
	if err != nil {
		return nil, err
	}
	defer union.Close()

	result := &Comparison{
		CandidatePixel: gocv.CountNonZero(cand.GetMat()),
		ReferencePixel: gocv.CountNonZero(ref.GetMat()),
	}
	if unionPixels := gocv.CountNonZero(union.GetMat()); unionPixels > 0 {
		result.Similarity = float64(gocv.CountNonZero(intersection.GetMat())) / float64(unionPixels)
	}

	result.Precision, err = c.coverage(cand, ref, result.CandidatePixel)
	if err != nil {
		return nil, err
	}
	result.Recall, err = c.coverage(ref, cand, result.ReferencePixel)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// coverage is the fraction of the pixels of a lying within tolerance of b.
func (c *Comparator) coverage(a, b *safe.Mat, total int) (float64, error) {
	if total == 0 {
		return 0, nil
	}

	grown, err := safe.NewMatWithTracker(b.Rows(), b.Cols(), gocv.MatTypeCV8UC1, c.tracker, "metrics_grown")
	if err != nil {
		return 0, err
	}
	defer grown.Close()

	side := 2*c.tolerance + 1
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(side, side))
	defer kernel.Close()

	grownMat := grown.GetMat()
	if err := gocv.Dilate(b.GetMat(), &grownMat, kernel); err != nil {
		return 0, fmt.Errorf("grow reference: %w", err)
	}

	matched, err := c.combine(a, grown, opAnd, "metrics_matched")
	if err != nil {
		return 0, err
	}
	defer matched.Close()

	return float64(gocv.CountNonZero(matched.GetMat())) / float64(total), nil
}

type bitwiseOp int

const (
	opAnd bitwiseOp = iota
	opOr
)

func (c *Comparator) combine(a, b *safe.Mat, op bitwiseOp, tag string) (*safe.Mat, error) {
	dst, err := safe.NewMatWithTracker(a.Rows(), a.Cols(), gocv.MatTypeCV8UC1, c.tracker, tag)
	if err != nil {
		return nil, err
	}
	dstMat := dst.GetMat()
	switch op {
	case opAnd:
		err = gocv.BitwiseAnd(a.GetMat(), b.GetMat(), &dstMat)
	case opOr:
		err = gocv.BitwiseOr(a.GetMat(), b.GetMat(), &dstMat)
	}
	if err != nil {
		dst.Close()
		return nil, fmt.Errorf("%s: %w", tag, err)
	}
	return dst, nil
}

// MorphologicalSkeleton computes the Lantuejoul skeleton of m by repeated
// erosion and opening. It is not homotopy preserving and serves as a
// baseline for comparisons.
func MorphologicalSkeleton(m *raster.Mask, tracker safe.MemoryTracker) (*raster.Mask, error) {
	work, err := bridge.MaskToMat(m, tracker, "morph_work")
	if err != nil {
		return nil, err
	}
	defer work.Close()

	skeleton, err := safe.NewMatWithTracker(m.Height, m.Width, gocv.MatTypeCV8UC1, tracker, "morph_skeleton")
	if err != nil {
		return nil, err
	}
	defer skeleton.Close()

	temp, err := safe.NewMatWithTracker(m.Height, m.Width, gocv.MatTypeCV8UC1, tracker, "morph_temp")
	if err != nil {
		return nil, err
	}
	defer temp.Close()

	element := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer element.Close()

	workMat := work.GetMat()
	skelMat := skeleton.GetMat()
	tempMat := temp.GetMat()
	skelMat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	maxIterations := m.Width + m.Height
	for i := 0; i < maxIterations && gocv.CountNonZero(workMat) > 0; i++ {
		if err := morphStep(&workMat, &skelMat, &tempMat, element); err != nil {
			return nil, fmt.Errorf("morphological skeleton, iteration %d: %w", i, err)
		}
	}

	return bridge.MatToMask(skeleton)
}

// morphStep adds work minus its opening to skel, then erodes work.
func morphStep(work, skel, temp *gocv.Mat, element gocv.Mat) error {
	if err := gocv.MorphologyEx(*work, temp, gocv.MorphOpen, element); err != nil {
		return err
	}
	if err := gocv.BitwiseNot(*temp, temp); err != nil {
		return err
	}
	if err := gocv.BitwiseAnd(*work, *temp, temp); err != nil {
		return err
	}
	if err := gocv.BitwiseOr(*skel, *temp, skel); err != nil {
		return err
	}
	return gocv.MorphologyEx(*work, work, gocv.MorphErode, element)
}
