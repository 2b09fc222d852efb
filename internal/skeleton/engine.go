// Package skeleton computes Hamilton-Jacobi skeletons of binary silhouettes.
// An Engine chains the distance transform, the outward-flux field, homotopy
// preserving thinning and inscribed-circle pruning, optionally intersecting
// the result with a pass over an anisotropically smoothed distance field.
package skeleton

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hjs-skeleton/internal/diffusion"
	"hjs-skeleton/internal/flux"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/pruning"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/thinning"
)

const component = "SkeletonEngine"

var (
	ErrEmptyFrame        = errors.New("frame has no foreground pixels")
	ErrFrameTooSmall     = errors.New("frame must be at least 3x3")
	ErrNoBackground      = errors.New("frame has no background pixels")
	ErrEmptyContour      = errors.New("no contour points found")
	ErrInvalidParameters = errors.New("invalid skeleton parameters")
	ErrNoResult          = errors.New("no skeleton computed yet")
)

// Geometry supplies the image operations the engine does not implement
// itself.
type Geometry interface {
	// DistanceTransform returns the Euclidean distance of every foreground
	// pixel to the nearest background pixel, 0 outside the object.
	DistanceTransform(mask *raster.Mask) (*raster.Field, error)
	// TraceContours returns the boundary pixels of every component, holes included.
	TraceContours(mask *raster.Mask) ([]raster.Point, error)
	ContourMask(mask *raster.Mask) (*raster.Mask, error)
	Gradient(field *raster.Field) (dx, dy *raster.Field, err error)
	Dilate(mask *raster.Mask, radius int) (*raster.Mask, error)
}

// BranchFilter post-processes a pruned skeleton.
type BranchFilter interface {
	RemoveShortBoundaryBranches(skeleton, contour *raster.Mask) (*raster.Mask, error)
}

// Result holds everything produced by one Compute call.
type Result struct {
	Skeleton *raster.Mask
	// Unpruned is the thinning output before inscribed-circle pruning.
	Unpruned *raster.Mask
	Distance *raster.Field
	Flux     *raster.Field
	Contour  *raster.Mask
	Circles  []pruning.InscribedCircle

	FluxThreshold float32
	Thinning      thinning.Stats
	Diffused      bool
	Elapsed       time.Duration
}

type Option func(*Engine)

func WithBranchFilter(filter BranchFilter) Option {
	return func(e *Engine) { e.branches = filter }
}

type Engine struct {
	mu       sync.RWMutex
	geometry Geometry
	branches BranchFilter
	params   Parameters
	logger   logger.Logger
	result   *Result
}

func NewEngine(geometry Geometry, params Parameters, log logger.Logger, opts ...Option) (*Engine, error) {
	if geometry == nil {
		return nil, fmt.Errorf("skeleton engine requires a geometry backend")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	e := &Engine{geometry: geometry, params: params, logger: log}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetParameters updates gamma, epsilon and the pruning angle. A threshold
// <= 0 disables pruning.
func (e *Engine) SetParameters(gamma, epsilon, arcAngleThreshold float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.params.WithTuning(gamma, epsilon, arcAngleThreshold)
	if err := next.Validate(); err != nil {
		return err
	}
	e.params = next
	return nil
}

func (e *Engine) SetConfig(params Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.params = params
	e.mu.Unlock()
	return nil
}

func (e *Engine) Parameters() Parameters {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// Compute runs the full pipeline on frame and stores the result. On error
// the previous result is kept.
func (e *Engine) Compute(ctx context.Context, frame *raster.Mask, enableDiffusion bool) error {
	params := e.Parameters()
	start := time.Now()

	if err := validateFrame(frame); err != nil {
		return err
	}

	distance, err := e.geometry.DistanceTransform(frame)
	if err != nil {
		return fmt.Errorf("distance transform: %w", err)
	}
	contour, err := e.geometry.TraceContours(frame)
	if err != nil {
		return fmt.Errorf("trace contours: %w", err)
	}
	if len(contour) == 0 {
		return ErrEmptyContour
	}
	contourMask, err := e.geometry.ContourMask(frame)
	if err != nil {
		return fmt.Errorf("contour mask: %w", err)
	}

	raw, err := e.pass(frame, distance, contour, params.Gamma)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unpruned := raw.skeleton
	if enableDiffusion {
		unpruned, err = e.intersectSmoothed(ctx, frame, distance, contour, raw.skeleton, params)
		if err != nil {
			return err
		}
	}

	pruner, err := pruning.NewPruner(params.Pruning)
	if err != nil {
		return err
	}
	skeleton, circles, err := pruner.Prune(unpruned, distance, contourMask)
	if err != nil {
		return fmt.Errorf("pruning: %w", err)
	}

	if e.branches != nil {
		skeleton, err = e.branches.RemoveShortBoundaryBranches(skeleton, contourMask)
		if err != nil {
			return fmt.Errorf("branch removal: %w", err)
		}
	}

	result := &Result{
		Skeleton:      skeleton,
		Unpruned:      unpruned,
		Distance:      distance,
		Flux:          raw.flux,
		Contour:       contourMask,
		Circles:       circles,
		FluxThreshold: raw.threshold,
		Thinning:      raw.stats,
		Diffused:      enableDiffusion,
		Elapsed:       time.Since(start),
	}

	e.mu.Lock()
	e.result = result
	e.mu.Unlock()

	e.logger.Info(component, "skeleton computed", map[string]interface{}{
		"width":          frame.Width,
		"height":         frame.Height,
		"diffusion":      enableDiffusion,
		"flux_threshold": raw.threshold,
		"unpruned":       unpruned.Count(),
		"skeleton":       skeleton.Count(),
		"circles":        len(circles),
		"duration_ms":    result.Elapsed.Milliseconds(),
	})
	return nil
}

type passResult struct {
	skeleton  *raster.Mask
	flux      *raster.Field
	threshold float32
	stats     thinning.Stats
}

// pass is the stateless gradient, flux and thinning chain over one distance field.
func (e *Engine) pass(frame *raster.Mask, distance *raster.Field, contour []raster.Point, gamma float64) (*passResult, error) {
	dx, dy, err := e.geometry.Gradient(distance)
	if err != nil {
		return nil, fmt.Errorf("gradient: %w", err)
	}
	f, err := flux.Compute(dx, dy)
	if err != nil {
		return nil, err
	}
	threshold, err := flux.Threshold(f, gamma)
	if err != nil {
		return nil, err
	}
	skeleton, stats, err := thinning.NewThinner(threshold).Thin(frame, f, contour)
	if err != nil {
		return nil, fmt.Errorf("thinning: %w", err)
	}

	e.logger.Debug(component, "thinning pass finished", map[string]interface{}{
		"seeds":      stats.Seeds,
		"pops":       stats.Pops,
		"removed":    stats.Removed,
		"end_points": stats.EndPoints,
		"skeleton":   stats.Skeleton,
	})
	return &passResult{skeleton: skeleton, flux: f, threshold: threshold, stats: stats}, nil
}

// intersectSmoothed runs a second pass on the smoothed distance field,
// dilates its skeleton by one pixel and keeps only raw skeleton pixels
// covered by it.
func (e *Engine) intersectSmoothed(ctx context.Context, frame *raster.Mask, distance *raster.Field, contour []raster.Point, raw *raster.Mask, params Parameters) (*raster.Mask, error) {
	smoother, err := diffusion.NewSmoother(params.Diffusion)
	if err != nil {
		return nil, err
	}
	smoothed, err := smoother.Smooth(ctx, distance)
	if err != nil {
		return nil, fmt.Errorf("diffusion: %w", err)
	}

	pass, err := e.pass(frame, smoothed, contour, params.Gamma)
	if err != nil {
		return nil, err
	}
	widened, err := e.geometry.Dilate(pass.skeleton, 1)
	if err != nil {
		return nil, fmt.Errorf("dilate: %w", err)
	}
	return raw.And(widened)
}

func validateFrame(frame *raster.Mask) error {
	if frame == nil {
		return ErrEmptyFrame
	}
	if frame.Width < 3 || frame.Height < 3 {
		return fmt.Errorf("%dx%d: %w", frame.Width, frame.Height, ErrFrameTooSmall)
	}
	switch n := frame.Count(); {
	case n == 0:
		return ErrEmptyFrame
	case n == len(frame.Data):
		// The distance to the background would be infinite everywhere.
		return fmt.Errorf("%dx%d: %w", frame.Width, frame.Height, ErrNoBackground)
	}
	return nil
}

// Skeleton returns a copy of the last final skeleton as a {0,1} mask.
func (e *Engine) Skeleton() (*raster.Mask, error) {
	r, err := e.last()
	if err != nil {
		return nil, err
	}
	return r.Skeleton.Clone(), nil
}

func (e *Engine) DistanceField() (*raster.Field, error) {
	r, err := e.last()
	if err != nil {
		return nil, err
	}
	return r.Distance.Clone(), nil
}

// FluxField returns the flux of the pass over the raw distance field.
func (e *Engine) FluxField() (*raster.Field, error) {
	r, err := e.last()
	if err != nil {
		return nil, err
	}
	return r.Flux.Clone(), nil
}

// Result returns a deep copy of the last result.
func (e *Engine) Result() (*Result, error) {
	r, err := e.last()
	if err != nil {
		return nil, err
	}
	out := *r
	out.Skeleton = r.Skeleton.Clone()
	out.Unpruned = r.Unpruned.Clone()
	out.Distance = r.Distance.Clone()
	out.Flux = r.Flux.Clone()
	out.Contour = r.Contour.Clone()
	out.Circles = append([]pruning.InscribedCircle(nil), r.Circles...)
	return &out, nil
}

func (e *Engine) last() (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.result == nil {
		return nil, ErrNoResult
	}
	return e.result, nil
}
