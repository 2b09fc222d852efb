// Package rastertest provides synthetic silhouettes and slow reference
// implementations of the image operations the skeleton engine consumes, so
// the core packages can be tested without OpenCV.
package rastertest

import (
	"math"

	"hjs-skeleton/internal/raster"
)

const Foreground = 255

// Rect returns a width x height mask with the inclusive rectangle
// [x0,x1] x [y0,y1] filled.
func Rect(width, height, x0, y0, x1, y1 int) *raster.Mask {
	m := raster.MustMask(width, height)
	fillRect(m, x0, y0, x1, y1)
	return m
}

// Disk returns a mask with a filled disk of the given radius.
func Disk(width, height, cx, cy, radius int) *raster.Mask {
	m := raster.MustMask(width, height)
	fillDisk(m, cx, cy, radius)
	return m
}

// Annulus returns a ring between inner and outer radius around (cx,cy).
func Annulus(width, height, cx, cy, inner, outer int) *raster.Mask {
	m := raster.MustMask(width, height)
	fillDisk(m, cx, cy, outer)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= inner*inner {
				m.Set(x, y, 0)
			}
		}
	}
	return m
}

// Dumbbell returns two disks of radius r centred on row cy at x=left and
// x=right, joined by a bar of the given odd thickness.
func Dumbbell(width, height, left, right, cy, radius, thickness int) *raster.Mask {
	m := raster.MustMask(width, height)
	fillDisk(m, left, cy, radius)
	fillDisk(m, right, cy, radius)
	half := thickness / 2
	fillRect(m, left, cy-half, right, cy+half)
	return m
}

func fillRect(m *raster.Mask, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if m.In(x, y) {
				m.Set(x, y, Foreground)
			}
		}
	}
}

func fillDisk(m *raster.Mask, cx, cy, radius int) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				m.Set(x, y, Foreground)
			}
		}
	}
}

// Components counts the 8-connected components of the foreground of m.
func Components(m *raster.Mask) int {
	seen := make([]bool, len(m.Data))
	count := 0
	for start, v := range m.Data {
		if v == 0 || seen[start] {
			continue
		}
		count++
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.Width, i/m.Width
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					nx, ny := x+kx, y+ky
					if !m.In(nx, ny) {
						continue
					}
					j := ny*m.Width + nx
					if m.Data[j] != 0 && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
	}
	return count
}

// BackgroundReachable reports whether to can be reached from from through
// 4-connected background pixels of m.
func BackgroundReachable(m *raster.Mask, from, to raster.Point) bool {
	if m.On(from.X, from.Y) || m.On(to.X, to.Y) {
		return false
	}
	seen := make([]bool, len(m.Data))
	stack := []raster.Point{from}
	seen[from.Y*m.Width+from.X] = true
	steps := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == to {
			return true
		}
		for _, s := range steps {
			nx, ny := p.X+s[0], p.Y+s[1]
			if !m.In(nx, ny) || m.On(nx, ny) {
				continue
			}
			j := ny*m.Width + nx
			if !seen[j] {
				seen[j] = true
				stack = append(stack, raster.Point{X: nx, Y: ny})
			}
		}
	}
	return false
}

// Geometry is a brute-force stand-in for the OpenCV-backed collaborators.
type Geometry struct{}

// DistanceTransform returns the exact Euclidean distance from every
// foreground pixel to the nearest background pixel.
func (Geometry) DistanceTransform(mask *raster.Mask) (*raster.Field, error) {
	background := make([]raster.Point, 0)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.On(x, y) {
				background = append(background, raster.Point{X: x, Y: y})
			}
		}
	}

	d := raster.MustField(mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.On(x, y) {
				continue
			}
			best := math.MaxFloat64
			for _, b := range background {
				dx, dy := float64(b.X-x), float64(b.Y-y)
				if dist := dx*dx + dy*dy; dist < best {
					best = dist
				}
			}
			d.Set(x, y, float32(math.Sqrt(best)))
		}
	}
	return d, nil
}

// TraceContours returns every foreground pixel with a 4-neighbour in the
// background, in row-major order.
func (Geometry) TraceContours(mask *raster.Mask) ([]raster.Point, error) {
	points := make([]raster.Point, 0)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.On(x, y) && onBoundary(mask, x, y) {
				points = append(points, raster.Point{X: x, Y: y})
			}
		}
	}
	return points, nil
}

func (g Geometry) ContourMask(mask *raster.Mask) (*raster.Mask, error) {
	points, _ := g.TraceContours(mask)
	out := raster.MustMask(mask.Width, mask.Height)
	for _, p := range points {
		out.Set(p.X, p.Y, 1)
	}
	return out, nil
}

func (Geometry) Gradient(field *raster.Field) (*raster.Field, *raster.Field, error) {
	dx, dy := raster.FirstDerivative(field)
	return dx, dy, nil
}

// Dilate grows every foreground pixel to a (2r+1) square.
func (Geometry) Dilate(mask *raster.Mask, radius int) (*raster.Mask, error) {
	out := raster.MustMask(mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.On(x, y) {
				continue
			}
			for ky := -radius; ky <= radius; ky++ {
				for kx := -radius; kx <= radius; kx++ {
					if out.In(x+kx, y+ky) {
						out.Set(x+kx, y+ky, 1)
					}
				}
			}
		}
	}
	return out, nil
}

func onBoundary(mask *raster.Mask, x, y int) bool {
	steps := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, s := range steps {
		nx, ny := x+s[0], y+s[1]
		if !mask.In(nx, ny) || !mask.On(nx, ny) {
			return true
		}
	}
	return false
}
