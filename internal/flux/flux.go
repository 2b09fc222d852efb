// Package flux turns the gradient of a distance field into the average
// outward flux field used to rank pixels during thinning.
package flux

import (
	"errors"
	"fmt"
	"math"

	"hjs-skeleton/internal/raster"
)

var ErrInvalidGamma = errors.New("gamma must be positive")

type offset struct {
	kx, ky int
	nx, ny float32
}

// neighborhood holds the 8 offsets with the unit normal (kx,ky)/|(kx,ky)|.
var neighborhood = func() []offset {
	offsets := make([]offset, 0, 8)
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			if kx == 0 && ky == 0 {
				continue
			}
			norm := float32(math.Sqrt(float64(kx*kx + ky*ky)))
			offsets = append(offsets, offset{
				kx: kx,
				ky: ky,
				nx: float32(kx) / norm,
				ny: float32(ky) / norm,
			})
		}
	}
	return offsets
}()

// Compute returns F where every interior pixel holds the mean of
// Dx·nx + Dy·ny over its 8 neighbours. The outermost ring is 0.
func Compute(dx, dy *raster.Field) (*raster.Field, error) {
	if dx == nil {
		return nil, fmt.Errorf("flux: nil gradient: %w", raster.ErrSizeMismatch)
	}
	if err := dx.CheckSameSize(dy); err != nil {
		return nil, fmt.Errorf("flux: %w", err)
	}

	w, h := dx.Width, dx.Height
	f, err := raster.NewField(w, h)
	if err != nil {
		return nil, err
	}
	if w < 3 || h < 3 {
		return f, nil
	}

	raster.ParallelFor(w*h, func(start, end int) {
		for i := start; i < end; i++ {
			x, y := i%w, i/w
			if raster.IsBorder(x, y, w, h) {
				continue
			}
			var sum float32
			for _, o := range neighborhood {
				j := (y+o.ky)*w + (x + o.kx)
				sum += dx.Data[j]*o.nx + dy.Data[j]*o.ny
			}
			f.Data[i] = sum / 8
		}
	})
	return f, nil
}

// Threshold returns min(F)/gamma, the flux level at or below which an end
// point is kept as a permanent skeleton point.
func Threshold(f *raster.Field, gamma float64) (float32, error) {
	if gamma <= 0 || math.IsNaN(gamma) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidGamma, gamma)
	}
	minVal, _ := f.MinMax()
	return float32(float64(minVal) / gamma), nil
}
