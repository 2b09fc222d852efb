// Package fluxmap renders the intermediate fields of the skeleton pipeline
// as 8-bit images.
package fluxmap

import (
	"context"
	"fmt"

	"hjs-skeleton/internal/algorithms/param"
	"hjs-skeleton/internal/flux"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/conversion"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/skeleton"
)

const Name = "Flux Field"

const (
	FieldFlux     = "flux"
	FieldDistance = "distance"
)

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
	return map[string]interface{}{
		"field":            FieldFlux,
		"binary_threshold": 127.0,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	switch field := param.String(params, "field", FieldFlux); field {
	case FieldFlux, FieldDistance:
	default:
		return fmt.Errorf("field must be %q or %q, got: %q", FieldFlux, FieldDistance, field)
	}

	if threshold := param.Float(params, "binary_threshold", 127); threshold < 0 || threshold > 255 {
		return fmt.Errorf("binary_threshold must be between 0 and 255, got: %f", threshold)
	}
	return nil
}

func (p *Processor) Process(input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	return p.ProcessWithContext(context.Background(), input, params)
}

// ProcessWithContext returns the selected field stretched to 0..255.
func (p *Processor) ProcessWithContext(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "flux field processing"); err != nil {
		return nil, err
	}

	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	frame, err := conversion.ToRasterMask(input, float32(param.Float(params, "binary_threshold", 127)), p.tracker)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	field, err := p.Field(frame, param.String(params, "field", FieldFlux))
	if err != nil {
		return nil, err
	}
	return bridge.ImageToMat(bridge.FieldImage(field), p.tracker)
}

// Field computes the distance transform of frame and, for FieldFlux, the
// outward flux of its gradient.
func (p *Processor) Field(frame *raster.Mask, name string) (*raster.Field, error) {
	distance, err := p.geometry.DistanceTransform(frame)
	if err != nil {
		return nil, fmt.Errorf("distance transform: %w", err)
	}
	if name == FieldDistance {
		return distance, nil
	}

	dx, dy, err := p.geometry.Gradient(distance)
	if err != nil {
		return nil, fmt.Errorf("gradient: %w", err)
	}
	return flux.Compute(dx, dy)
}
