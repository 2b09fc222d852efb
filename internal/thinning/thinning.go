// Package thinning erodes a silhouette to its skeleton by removing simple
// points in decreasing order of outward flux. Removing only simple points
// preserves the homotopy type of the shape; end points whose flux is at or
// below the threshold are kept as genuine skeleton features.
package thinning

import (
	"errors"
	"fmt"

	"hjs-skeleton/internal/raster"
)

var ErrNoContour = errors.New("no contour points to seed thinning")

// Stats summarises one thinning run.
type Stats struct {
	Seeds     int
	Pops      int
	Removed   int
	EndPoints int
	NonSimple int
	Skeleton  int
}

type Thinner struct {
	FluxThreshold float32
}

func NewThinner(fluxThreshold float32) *Thinner {
	return &Thinner{FluxThreshold: fluxThreshold}
}

// Thin runs the thinning state machine. interior marks the silhouette
// (non-zero = object), flux is the outward-flux field and contour the traced
// boundary points used as seeds. The result is a {0,1} skeleton mask that
// never contains image-border pixels.
func (t *Thinner) Thin(interior *raster.Mask, flux *raster.Field, contour []raster.Point) (*raster.Mask, Stats, error) {
	var stats Stats
	if interior == nil || flux == nil {
		return nil, stats, fmt.Errorf("thinning: nil input")
	}
	if !flux.SameSize(interior.Width, interior.Height) {
		return nil, stats, fmt.Errorf("thinning: flux %dx%d vs mask %dx%d: %w",
			flux.Width, flux.Height, interior.Width, interior.Height, raster.ErrSizeMismatch)
	}
	if len(contour) == 0 {
		return nil, stats, ErrNoContour
	}

	status := StatusMapFromMask(interior)
	var queue fluxQueue

	for _, p := range contour {
		if !interior.In(p.X, p.Y) || status.isBorder(p.X, p.Y) {
			continue
		}
		if IsSimple(status, p.X, p.Y) {
			status.Set(p.X, p.Y, SkeletonCandidate)
			queue.push(FluxPoint{X: p.X, Y: p.Y, Flux: flux.At(p.X, p.Y)})
			stats.Seeds++
		}
	}

	for !queue.empty() {
		p := queue.pop()
		stats.Pops++

		status.Set(p.X, p.Y, SkeletonCandidate)
		if !IsSimple(status, p.X, p.Y) {
			stats.NonSimple++
			continue
		}

		if IsEndPoint(status, p.X, p.Y) && p.Flux <= t.FluxThreshold {
			stats.EndPoints++
			continue
		}

		status.Set(p.X, p.Y, Removed)
		stats.Removed++
		t.enqueueNeighbors(status, flux, &queue, p)
	}

	skeleton := status.Candidates()
	stats.Skeleton = skeleton.Count()
	return skeleton, stats, nil
}

func (t *Thinner) enqueueNeighbors(status *StatusMap, flux *raster.Field, queue *fluxQueue, p FluxPoint) {
	for _, o := range cyclicOffsets {
		nx, ny := p.X+o[0], p.Y+o[1]
		if status.Get(nx, ny) != SkeletonCandidate || status.isBorder(nx, ny) {
			continue
		}
		if IsSimple(status, nx, ny) {
			status.Set(nx, ny, Searching)
			queue.push(FluxPoint{X: nx, Y: ny, Flux: flux.At(nx, ny)})
		}
	}
}
