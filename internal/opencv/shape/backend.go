// Package shape implements the geometric collaborators of the skeleton
// engine with OpenCV: distance transform, contour tracing, Sobel gradients
// and morphological dilation.
package shape

import (
	"fmt"
	"image"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"

	"gocv.io/x/gocv"
)

type Backend struct {
	mats   *memory.Manager
	logger logger.Logger
}

func NewBackend(mats *memory.Manager, log logger.Logger) *Backend {
	return &Backend{mats: mats, logger: log}
}

// DistanceTransform computes the L2 distance to the nearest background
// pixel with a 3x3 mask.
func (b *Backend) DistanceTransform(mask *raster.Mask) (*raster.Field, error) {
	src, err := bridge.MaskToMat(mask, b.mats, "distance_src")
	if err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}
	defer b.mats.ReleaseMat(src)

	dst, err := b.mats.GetMat(mask.Height, mask.Width, gocv.MatTypeCV32FC1, "distance")
	if err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}
	defer b.mats.ReleaseMat(dst)

	labels, err := b.mats.GetMat(mask.Height, mask.Width, gocv.MatTypeCV32SC1, "distance_labels")
	if err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}
	defer b.mats.ReleaseMat(labels)

	dstMat, labelMat := dst.GetMat(), labels.GetMat()
	if err := gocv.DistanceTransform(src.GetMat(), &dstMat, &labelMat, gocv.DistL2, gocv.DistanceMask3, gocv.DistanceLabelCComp); err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}

	return bridge.MatToField(dst)
}

// TraceContours returns every point of every contour, inner contours
// included, without approximation.
func (b *Backend) TraceContours(mask *raster.Mask) ([]raster.Point, error) {
	src, err := bridge.MaskToMat(mask, b.mats, "contour_src")
	if err != nil {
		return nil, fmt.Errorf("trace contours: %w", err)
	}
	defer b.mats.ReleaseMat(src)

	contours := gocv.FindContours(src.GetMat(), gocv.RetrievalList, gocv.ChainApproxNone)
	defer contours.Close()

	if contours.IsNil() {
		return []raster.Point{}, nil
	}

	var points []raster.Point
	for _, contour := range contours.ToPoints() {
		points = append(points, contour...)
	}

	b.logger.Debug("ShapeBackend", "contours traced", map[string]interface{}{
		"contours": contours.Size(),
		"points":   len(points),
	})
	return points, nil
}

func (b *Backend) ContourMask(mask *raster.Mask) (*raster.Mask, error) {
	points, err := b.TraceContours(mask)
	if err != nil {
		return nil, err
	}
	out, err := raster.NewMask(mask.Width, mask.Height)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if out.In(p.X, p.Y) {
			out.Set(p.X, p.Y, 1)
		}
	}
	return out, nil
}

// Gradient returns the 3x3 Sobel derivatives along x and y.
func (b *Backend) Gradient(field *raster.Field) (*raster.Field, *raster.Field, error) {
	src, err := bridge.FieldToMat(field, b.mats, "gradient_src")
	if err != nil {
		return nil, nil, fmt.Errorf("gradient: %w", err)
	}
	defer b.mats.ReleaseMat(src)

	dx, err := b.sobel(src, 1, 0)
	if err != nil {
		return nil, nil, err
	}
	dy, err := b.sobel(src, 0, 1)
	if err != nil {
		return nil, nil, err
	}
	return dx, dy, nil
}

func (b *Backend) sobel(src *safe.Mat, xorder, yorder int) (*raster.Field, error) {
	dst, err := b.mats.GetMat(src.Rows(), src.Cols(), gocv.MatTypeCV32FC1, "sobel")
	if err != nil {
		return nil, fmt.Errorf("sobel: %w", err)
	}
	defer b.mats.ReleaseMat(dst)

	dstMat := dst.GetMat()
	if err := gocv.Sobel(src.GetMat(), &dstMat, gocv.MatTypeCV32F, xorder, yorder, 3, 1, 0, gocv.BorderDefault); err != nil {
		return nil, fmt.Errorf("sobel d%d/d%d: %w", xorder, yorder, err)
	}
	return bridge.MatToField(dst)
}

// Dilate grows the mask with a (2*radius+1) square structuring element.
func (b *Backend) Dilate(mask *raster.Mask, radius int) (*raster.Mask, error) {
	if radius < 0 {
		return nil, fmt.Errorf("dilate: negative radius %d", radius)
	}
	src, err := bridge.MaskToMat(mask, b.mats, "dilate_src")
	if err != nil {
		return nil, fmt.Errorf("dilate: %w", err)
	}
	defer b.mats.ReleaseMat(src)

	dst, err := b.mats.GetMat(mask.Height, mask.Width, gocv.MatTypeCV8UC1, "dilated")
	if err != nil {
		return nil, fmt.Errorf("dilate: %w", err)
	}
	defer b.mats.ReleaseMat(dst)

	size := 2*radius + 1
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
	defer kernel.Close()

	dstMat := dst.GetMat()
	if err := gocv.Dilate(src.GetMat(), &dstMat, kernel); err != nil {
		return nil, fmt.Errorf("dilate: %w", err)
	}
	return bridge.MatToMask(dst)
}
