package skeleton

import (
	"fmt"
	"math"

	"hjs-skeleton/internal/diffusion"
	"hjs-skeleton/internal/pruning"
)

// Parameters tunes one skeleton computation.
//
// Gamma divides the minimum flux to obtain the end-point threshold; larger
// values move the threshold towards zero and keep more end points. Epsilon is carried for callers that tune it
// alongside gamma and does not affect the result.
type Parameters struct {
	Gamma     float64          `yaml:"gamma"`
	Epsilon   float64          `yaml:"epsilon"`
	Pruning   pruning.Config   `yaml:"pruning"`
	Diffusion diffusion.Config `yaml:"diffusion"`
}

func DefaultParameters() Parameters {
	return Parameters{
		Gamma:     2.5,
		Epsilon:   1.0,
		Pruning:   pruning.DefaultConfig(),
		Diffusion: diffusion.DefaultConfig(),
	}
}

func (p Parameters) Validate() error {
	if !(p.Gamma > 0) || math.IsInf(p.Gamma, 0) {
		return fmt.Errorf("%w: gamma must be positive, got %v", ErrInvalidParameters, p.Gamma)
	}
	if !(p.Epsilon > 0) || math.IsInf(p.Epsilon, 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %v", ErrInvalidParameters, p.Epsilon)
	}
	if err := p.Pruning.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if err := p.Diffusion.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// WithTuning returns a copy updated the way interactive tuning expects: a
// positive arc angle enables pruning at that angle, anything else disables it.
func (p Parameters) WithTuning(gamma, epsilon, arcAngleThreshold float64) Parameters {
	p.Gamma = gamma
	p.Epsilon = epsilon
	if arcAngleThreshold > 0 {
		p.Pruning.Enabled = true
		p.Pruning.ArcAngleThreshold = arcAngleThreshold
	} else {
		p.Pruning.Enabled = false
	}
	return p
}
