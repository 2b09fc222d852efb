// Package branches classifies skeleton pixels by their neighbour count and
// removes short branches that hug the shape boundary.
package branches

import (
	"errors"
	"fmt"
	"image"

	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"

	"gocv.io/x/gocv"
)

var ErrInvalidOptions = errors.New("invalid branch options")

type Options struct {
	Enabled bool `yaml:"enabled"`
	// DilateKernel is the side of the square used to widen the contour.
	DilateKernel int `yaml:"dilate_kernel"`
	// MinBranchLength is the pixel count below which a boundary branch is dropped.
	MinBranchLength int `yaml:"min_branch_length"`
}

func DefaultOptions() Options {
	return Options{
		Enabled:         false,
		DilateKernel:    9,
		MinBranchLength: 50,
	}
}

func (o Options) Validate() error {
	if o.DilateKernel < 1 {
		return fmt.Errorf("%w: dilate kernel %d", ErrInvalidOptions, o.DilateKernel)
	}
	if o.MinBranchLength < 0 {
		return fmt.Errorf("%w: min branch length %d", ErrInvalidOptions, o.MinBranchLength)
	}
	return nil
}

// Classification splits a skeleton by 8-neighbour count: junctions have
// more than two neighbours, bridges one or two, end points exactly one.
// End points are also bridges.
type Classification struct {
	Junctions *raster.Mask
	Bridges   *raster.Mask
	EndPoints *raster.Mask
}

type Analyzer struct {
	options Options
	tracker safe.MemoryTracker
}

// NewAnalyzer returns an analyzer whose Mats are reported to tracker, which may be nil.
func NewAnalyzer(options Options, tracker safe.MemoryTracker) (*Analyzer, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{options: options, tracker: tracker}, nil
}

func (a *Analyzer) Options() Options {
	return a.options
}

func (a *Analyzer) Classify(skeleton *raster.Mask) (*Classification, error) {
	counts, err := a.neighborCounts(skeleton)
	if err != nil {
		return nil, err
	}

	c := &Classification{
		Junctions: raster.MustMask(skeleton.Width, skeleton.Height),
		Bridges:   raster.MustMask(skeleton.Width, skeleton.Height),
		EndPoints: raster.MustMask(skeleton.Width, skeleton.Height),
	}
	for i, v := range skeleton.Data {
		if v == 0 {
			continue
		}
		switch n := counts[i]; {
		case n > 2:
			c.Junctions.Data[i] = 1
		case n == 1:
			c.EndPoints.Data[i] = 1
			c.Bridges.Data[i] = 1
		case n == 2:
			c.Bridges.Data[i] = 1
		}
	}
	return c, nil
}

func (a *Analyzer) neighborCounts(skeleton *raster.Mask) ([]uint8, error) {
	src, err := safe.NewMatFromBytesWithTracker(skeleton.Height, skeleton.Width, gocv.MatTypeCV8UC1,
		skeleton.Binary(1).Data, a.tracker, "skeleton")
	if err != nil {
		return nil, fmt.Errorf("neighbour count: %w", err)
	}
	defer src.Close()

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			kernel.SetFloatAt(y, x, 1)
		}
	}
	kernel.SetFloatAt(1, 1, 0)

	dst, err := safe.NewMatWithTracker(skeleton.Height, skeleton.Width, gocv.MatTypeCV8UC1, a.tracker, "neighbour_count")
	if err != nil {
		return nil, fmt.Errorf("neighbour count: %w", err)
	}
	defer dst.Close()

	dstMat := dst.GetMat()
	if err := gocv.Filter2D(src.GetMat(), &dstMat, -1, kernel, image.Point{X: -1, Y: -1}, 0, gocv.BorderConstant); err != nil {
		return nil, fmt.Errorf("neighbour count: %w", err)
	}
	return dst.Bytes()
}

// RemoveShortBoundaryBranches deletes every bridge component that comes
// within the dilated contour and has fewer than MinBranchLength pixels.
// The result is always a subset of skeleton.
func (a *Analyzer) RemoveShortBoundaryBranches(skeleton, contour *raster.Mask) (*raster.Mask, error) {
	if contour == nil || contour.Width != skeleton.Width || contour.Height != skeleton.Height {
		return nil, fmt.Errorf("remove branches: %w", raster.ErrSizeMismatch)
	}

	classes, err := a.Classify(skeleton)
	if err != nil {
		return nil, err
	}
	labels, err := a.label(classes.Bridges)
	if err != nil {
		return nil, err
	}
	near, err := a.dilate(contour)
	if err != nil {
		return nil, err
	}

	sizes := make(map[int32]int)
	touching := make(map[int32]bool)
	for i, l := range labels {
		if l == 0 {
			continue
		}
		sizes[l]++
		if near.Data[i] != 0 {
			touching[l] = true
		}
	}

	out := skeleton.Binary(1)
	for i, l := range labels {
		if l != 0 && touching[l] && sizes[l] < a.options.MinBranchLength {
			out.Data[i] = 0
		}
	}
	return out, nil
}

// label returns the 8-connected component label of every pixel, 0 for background.
func (a *Analyzer) label(m *raster.Mask) ([]int32, error) {
	src, err := bridge.MaskToMat(m, a.tracker, "bridges")
	if err != nil {
		return nil, fmt.Errorf("label bridges: %w", err)
	}
	defer src.Close()

	labels, err := safe.NewMatWithTracker(m.Height, m.Width, gocv.MatTypeCV32SC1, a.tracker, "bridge_labels")
	if err != nil {
		return nil, fmt.Errorf("label bridges: %w", err)
	}
	defer labels.Close()

	labelMat := labels.GetMat()
	gocv.ConnectedComponents(src.GetMat(), &labelMat)

	out := make([]int32, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v, err := labels.GetIntAt(y, x)
			if err != nil {
				return nil, err
			}
			out[y*m.Width+x] = v
		}
	}
	return out, nil
}

func (a *Analyzer) dilate(m *raster.Mask) (*raster.Mask, error) {
	src, err := bridge.MaskToMat(m, a.tracker, "contour")
	if err != nil {
		return nil, fmt.Errorf("dilate contour: %w", err)
	}
	defer src.Close()

	dst, err := safe.NewMatWithTracker(m.Height, m.Width, gocv.MatTypeCV8UC1, a.tracker, "contour_dilated")
	if err != nil {
		return nil, fmt.Errorf("dilate contour: %w", err)
	}
	defer dst.Close()

	k := a.options.DilateKernel
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k))
	defer kernel.Close()

	dstMat := dst.GetMat()
	if err := gocv.Dilate(src.GetMat(), &dstMat, kernel); err != nil {
		return nil, fmt.Errorf("dilate contour: %w", err)
	}
	return bridge.MatToMask(dst)
}
