// Package pruning removes spurious skeleton branches. Every skeleton pixel
// is the centre of an inscribed circle; the pixel survives only when the
// circle touches the shape boundary at two points spanning a wide enough arc.
package pruning

import (
	"errors"
	"fmt"
	"math"

	"hjs-skeleton/internal/raster"
)

var ErrInvalidConfig = errors.New("invalid pruning config")

// Config controls the inscribed-circle test.
//
// When Enabled is false the arc threshold is treated as 0 degrees, so every
// circle with two touching points survives. A Tolerance <= 0 is derived from
// the margin as 1.414*(1+Margin).
type Config struct {
	ArcAngleThreshold float64 `yaml:"arc_angle_threshold"`
	Enabled           bool    `yaml:"enabled"`
	Margin            int     `yaml:"touch_margin"`
	Tolerance         float64 `yaml:"touch_tolerance"`
}

func DefaultConfig() Config {
	return Config{
		ArcAngleThreshold: 0,
		Enabled:           false,
		Margin:            3,
	}
}

func (c Config) Validate() error {
	if math.IsNaN(c.ArcAngleThreshold) || c.ArcAngleThreshold < 0 || c.ArcAngleThreshold > 180 {
		return fmt.Errorf("%w: arc angle threshold %v outside [0,180]", ErrInvalidConfig, c.ArcAngleThreshold)
	}
	if c.Margin < 0 {
		return fmt.Errorf("%w: negative touch margin %d", ErrInvalidConfig, c.Margin)
	}
	if math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) {
		return fmt.Errorf("%w: touch tolerance %v", ErrInvalidConfig, c.Tolerance)
	}
	return nil
}

// EffectiveThreshold is the arc angle in degrees a circle must reach.
func (c Config) EffectiveThreshold() float64 {
	if !c.Enabled {
		return 0
	}
	return c.ArcAngleThreshold
}

func (c Config) EffectiveTolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return 1.414 * float64(1+c.Margin)
}

type Pruner struct {
	config Config
}

func NewPruner(config Config) (*Pruner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pruner{config: config}, nil
}

func (p *Pruner) Config() Config {
	return p.config
}

// Circles builds and evaluates one inscribed circle per skeleton pixel off
// the image border, in row-major order.
func (p *Pruner) Circles(skeleton *raster.Mask, distance *raster.Field, contour *raster.Mask) ([]InscribedCircle, error) {
	if skeleton == nil || distance == nil || contour == nil {
		return nil, fmt.Errorf("pruning: nil input")
	}
	w, h := skeleton.Width, skeleton.Height
	if !distance.SameSize(w, h) || contour.Width != w || contour.Height != h {
		return nil, fmt.Errorf("pruning: skeleton %dx%d, distance %dx%d, contour %dx%d: %w",
			w, h, distance.Width, distance.Height, contour.Width, contour.Height, raster.ErrSizeMismatch)
	}

	threshold := p.config.EffectiveThreshold()
	tolerance := p.config.EffectiveTolerance()

	var circles []InscribedCircle
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if !skeleton.On(x, y) {
				continue
			}
			c := NewInscribedCircle(raster.Point{X: x, Y: y}, distance.At(x, y))
			c.SearchTouchingPoints(contour, p.config.Margin, tolerance)
			if c.HasTouch() && c.ArcAngle >= threshold {
				c.Spurious = false
			}
			circles = append(circles, c)
		}
	}
	return circles, nil
}

// Prune returns a {0,1} mask holding the centres of the non-spurious circles.
// The result is always a subset of skeleton.
func (p *Pruner) Prune(skeleton *raster.Mask, distance *raster.Field, contour *raster.Mask) (*raster.Mask, []InscribedCircle, error) {
	circles, err := p.Circles(skeleton, distance, contour)
	if err != nil {
		return nil, nil, err
	}
	pruned := raster.MustMask(skeleton.Width, skeleton.Height)
	for _, c := range circles {
		if !c.Spurious {
			pruned.Set(c.Center.X, c.Center.Y, 1)
		}
	}
	return pruned, circles, nil
}
