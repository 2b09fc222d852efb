// Package smoothing exposes the anisotropic diffusion of the distance field
// as a standalone algorithm.
package smoothing

import (
	"context"
	"fmt"

	"hjs-skeleton/internal/algorithms/param"
	"hjs-skeleton/internal/diffusion"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/conversion"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/skeleton"
)

const Name = "Anisotropic Diffusion"

type Processor struct {
	name     string
	geometry skeleton.Geometry
	tracker  safe.MemoryTracker
}

func NewProcessor(geometry skeleton.Geometry, tracker safe.MemoryTracker) *Processor {
	return &Processor{
		name:     Name,
		geometry: geometry,
		tracker:  tracker,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	defaults := diffusion.DefaultConfig()
	return map[string]interface{}{
		"iterations":       defaults.Iterations,
		"time_step":        float64(defaults.TimeStep),
		"tangent_weight":   float64(defaults.TangentWeight),
		"binary_threshold": 127.0,
	}
}

func (p *Processor) config(params map[string]interface{}) diffusion.Config {
	c := diffusion.DefaultConfig()
	c.Iterations = param.Int(params, "iterations", c.Iterations)
	c.TimeStep = float32(param.Float(params, "time_step", float64(c.TimeStep)))
	c.TangentWeight = float32(param.Float(params, "tangent_weight", float64(c.TangentWeight)))
	return c
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	if err := p.config(params).Validate(); err != nil {
		return err
	}
	if threshold := param.Float(params, "binary_threshold", 127); threshold < 0 || threshold > 255 {
		return fmt.Errorf("binary_threshold must be between 0 and 255, got: %f", threshold)
	}
	return nil
}

func (p *Processor) Process(input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	return p.ProcessWithContext(context.Background(), input, params)
}

// ProcessWithContext returns the smoothed distance field stretched to 0..255.
func (p *Processor) ProcessWithContext(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "diffusion processing"); err != nil {
		return nil, err
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	frame, err := conversion.ToRasterMask(input, float32(param.Float(params, "binary_threshold", 127)), p.tracker)
	if err != nil {
		return nil, err
	}

	smoothed, err := p.Smooth(ctx, frame, p.config(params))
	if err != nil {
		return nil, err
	}
	return bridge.ImageToMat(bridge.FieldImage(smoothed), p.tracker)
}

// Smooth diffuses the distance transform of frame.
func (p *Processor) Smooth(ctx context.Context, frame *raster.Mask, config diffusion.Config) (*raster.Field, error) {
	smoother, err := diffusion.NewSmoother(config)
	if err != nil {
		return nil, err
	}
	distance, err := p.geometry.DistanceTransform(frame)
	if err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}
	return smoother.Smooth(ctx, distance)
}
