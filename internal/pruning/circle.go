package pruning

import (
	"math"

	"hjs-skeleton/internal/raster"
)

// InscribedCircle is the disk centred on a skeleton pixel with the distance
// value there as radius. A circle is spurious until two boundary points
// touching it are found whose arc angle reaches the pruning threshold.
type InscribedCircle struct {
	Center raster.Point
	Radius int

	TouchA  raster.Point
	TouchB  raster.Point
	Touches int

	// ArcAngle is the angle in degrees subtended at Center by TouchA and TouchB.
	ArcAngle float64
	Spurious bool
}

// NewInscribedCircle rounds distance to the nearest pixel, with a minimum radius of 1.
func NewInscribedCircle(center raster.Point, distance float32) InscribedCircle {
	radius := int(math.Round(float64(distance)))
	if radius < 1 {
		radius = 1
	}
	return InscribedCircle{Center: center, Radius: radius, Spurious: true}
}

// HasTouch reports whether at least two touching points were found.
func (c InscribedCircle) HasTouch() bool {
	return c.Touches >= 2
}

// SearchTouchingPoints scans the square window of half-size Radius+margin
// around the centre for contour pixels at distance d with d >= Radius and
// d-Radius <= tolerance, and keeps the pair with the widest arc between them.
func (c *InscribedCircle) SearchTouchingPoints(contour *raster.Mask, margin int, tolerance float64) {
	x0 := max(c.Center.X-c.Radius-margin, 0)
	y0 := max(c.Center.Y-c.Radius-margin, 0)
	x1 := min(c.Center.X+c.Radius+margin, contour.Width-1)
	y1 := min(c.Center.Y+c.Radius+margin, contour.Height-1)

	radius := float64(c.Radius)
	var candidates []raster.Point
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if !contour.On(x, y) {
				continue
			}
			dx, dy := float64(x-c.Center.X), float64(y-c.Center.Y)
			dist := math.Hypot(dx, dy)
			if dist < radius || dist-radius > tolerance {
				continue
			}
			candidates = append(candidates, raster.Point{X: x, Y: y})
		}
	}

	c.Touches = len(candidates)
	if len(candidates) < 2 {
		return
	}

	best := -1.0
	for i := range candidates {
		for j := 0; j < i; j++ {
			angle := c.arcAngle(candidates[i], candidates[j])
			// Later pairs win ties.
			if best <= angle {
				best = angle
				c.TouchA, c.TouchB = candidates[i], candidates[j]
			}
		}
	}
	c.ArcAngle = best
}

func (c *InscribedCircle) arcAngle(a, b raster.Point) float64 {
	ax, ay := float64(a.X-c.Center.X), float64(a.Y-c.Center.Y)
	bx, by := float64(b.X-c.Center.X), float64(b.Y-c.Center.Y)
	cos := (ax*bx + ay*by) / (math.Hypot(ax, ay) * math.Hypot(bx, by))
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
