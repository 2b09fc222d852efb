package hjs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hjs-skeleton/internal/algorithms/param"
	"hjs-skeleton/internal/branches"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/conversion"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/skeleton"
)

const Name = "Hamilton-Jacobi Skeleton"

var ErrNoResult = errors.New("no skeleton computed yet")

// Processor adapts the skeleton engine to the algorithm registry. Each call
// runs a fresh engine; the last result is kept for callers that need the
// intermediate fields.
type Processor struct {
	name     string
	geometry skeleton.Geometry
	tracker  safe.MemoryTracker
	logger   logger.Logger

	mu   sync.RWMutex
	last *skeleton.Result
}

func NewProcessor(geometry skeleton.Geometry, tracker safe.MemoryTracker, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{
		name:     Name,
		geometry: geometry,
		tracker:  tracker,
		logger:   log,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	defaults := skeleton.DefaultParameters()
	branchDefaults := branches.DefaultOptions()
	return map[string]interface{}{
		"gamma":                    defaults.Gamma,
		"epsilon":                  defaults.Epsilon,
		"arc_angle_threshold":      0.0, // 0 disables pruning
		"touch_margin":             defaults.Pruning.Margin,
		"touch_tolerance":          defaults.Pruning.Tolerance, // 0 derives from margin
		"diffusion":                false,
		"diffusion_iterations":     defaults.Diffusion.Iterations,
		"diffusion_time_step":      float64(defaults.Diffusion.TimeStep),
		"diffusion_tangent_weight": float64(defaults.Diffusion.TangentWeight),
		"branch_removal":           branchDefaults.Enabled,
		"branch_dilate_kernel":     branchDefaults.DilateKernel,
		"min_branch_length":        branchDefaults.MinBranchLength,
		"binary_threshold":         127.0,
	}
}

// Settings is the typed form of a parameter map.
type Settings struct {
	Parameters      skeleton.Parameters
	Branches        branches.Options
	Diffusion       bool
	BinaryThreshold float32
}

// ParseSettings overlays params on the defaults.
func ParseSettings(params map[string]interface{}) Settings {
	defaults := skeleton.DefaultParameters()
	branchOptions := branches.DefaultOptions()

	p := defaults.WithTuning(
		param.Float(params, "gamma", defaults.Gamma),
		param.Float(params, "epsilon", defaults.Epsilon),
		param.Float(params, "arc_angle_threshold", 0),
	)
	p.Pruning.Margin = param.Int(params, "touch_margin", defaults.Pruning.Margin)
	p.Pruning.Tolerance = param.Float(params, "touch_tolerance", defaults.Pruning.Tolerance)
	p.Diffusion.Iterations = param.Int(params, "diffusion_iterations", defaults.Diffusion.Iterations)
	p.Diffusion.TimeStep = float32(param.Float(params, "diffusion_time_step", float64(defaults.Diffusion.TimeStep)))
	p.Diffusion.TangentWeight = float32(param.Float(params, "diffusion_tangent_weight", float64(defaults.Diffusion.TangentWeight)))

	branchOptions.Enabled = param.Bool(params, "branch_removal", branchOptions.Enabled)
	branchOptions.DilateKernel = param.Int(params, "branch_dilate_kernel", branchOptions.DilateKernel)
	branchOptions.MinBranchLength = param.Int(params, "min_branch_length", branchOptions.MinBranchLength)

	return Settings{
		Parameters:      p,
		Branches:        branchOptions,
		Diffusion:       param.Bool(params, "diffusion", false),
		BinaryThreshold: float32(param.Float(params, "binary_threshold", 127)),
	}
}

// ToParameters is the inverse of ParseSettings.
func (s Settings) ToParameters() map[string]interface{} {
	angle := 0.0
	if s.Parameters.Pruning.Enabled {
		angle = s.Parameters.Pruning.ArcAngleThreshold
	}
	return map[string]interface{}{
		"gamma":                    s.Parameters.Gamma,
		"epsilon":                  s.Parameters.Epsilon,
		"arc_angle_threshold":      angle,
		"touch_margin":             s.Parameters.Pruning.Margin,
		"touch_tolerance":          s.Parameters.Pruning.Tolerance,
		"diffusion":                s.Diffusion,
		"diffusion_iterations":     s.Parameters.Diffusion.Iterations,
		"diffusion_time_step":      float64(s.Parameters.Diffusion.TimeStep),
		"diffusion_tangent_weight": float64(s.Parameters.Diffusion.TangentWeight),
		"branch_removal":           s.Branches.Enabled,
		"branch_dilate_kernel":     s.Branches.DilateKernel,
		"min_branch_length":        s.Branches.MinBranchLength,
		"binary_threshold":         float64(s.BinaryThreshold),
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	settings := ParseSettings(params)
	if err := settings.Parameters.Validate(); err != nil {
		return err
	}
	if err := settings.Branches.Validate(); err != nil {
		return err
	}
	if settings.BinaryThreshold < 0 || settings.BinaryThreshold > 255 {
		return fmt.Errorf("binary_threshold must be between 0 and 255, got: %f", settings.BinaryThreshold)
	}
	return nil
}

func (p *Processor) Process(input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	return p.ProcessWithContext(context.Background(), input, params)
}

// ProcessWithContext binarizes input, computes its skeleton and returns it
// as a CV_8UC1 {0,255} Mat.
func (p *Processor) ProcessWithContext(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "skeleton processing"); err != nil {
		return nil, err
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}
	settings := ParseSettings(params)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	frame, err := conversion.ToRasterMask(input, settings.BinaryThreshold, p.tracker)
	if err != nil {
		return nil, err
	}

	var opts []skeleton.Option
	if settings.Branches.Enabled {
		analyzer, err := branches.NewAnalyzer(settings.Branches, p.tracker)
		if err != nil {
			return nil, err
		}
		opts = append(opts, skeleton.WithBranchFilter(analyzer))
	}

	engine, err := skeleton.NewEngine(p.geometry, settings.Parameters, p.logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := engine.Compute(ctx, frame, settings.Diffusion); err != nil {
		return nil, fmt.Errorf("skeleton computation failed: %w", err)
	}

	result, err := engine.Result()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	return bridge.MaskToMat(result.Skeleton, p.tracker, "skeleton")
}

// LastResult returns the full result of the most recent successful call.
func (p *Processor) LastResult() (*skeleton.Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil {
		return nil, ErrNoResult
	}
	return p.last, nil
}
