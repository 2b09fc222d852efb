// Package config loads the YAML file shared by the CLI and the viewer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/branches"
	"hjs-skeleton/internal/diffusion"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/pruning"
	"hjs-skeleton/internal/skeleton"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Skeleton  SkeletonConfig   `yaml:"skeleton"`
	Pruning   pruning.Config   `yaml:"pruning"`
	Diffusion DiffusionConfig  `yaml:"diffusion"`
	Branches  branches.Options `yaml:"branches"`
	Input     InputConfig      `yaml:"input"`
	Output    OutputConfig     `yaml:"output"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type SkeletonConfig struct {
	Gamma   float64 `yaml:"gamma"`
	Epsilon float64 `yaml:"epsilon"`
}

type DiffusionConfig struct {
	Enabled          bool `yaml:"enabled"`
	diffusion.Config `yaml:",inline"`
}

type InputConfig struct {
	// BinaryThreshold separates foreground from background in grayscale input.
	BinaryThreshold float64 `yaml:"binary_threshold"`
}

type OutputConfig struct {
	// Format overrides the extension of the output path when set.
	Format       string `yaml:"format"`
	Overlay      bool   `yaml:"overlay"`
	FluxPath     string `yaml:"flux_path"`
	DistancePath string `yaml:"distance_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	params := skeleton.DefaultParameters()
	return &Config{
		Skeleton: SkeletonConfig{
			Gamma:   params.Gamma,
			Epsilon: params.Epsilon,
		},
		Pruning:   params.Pruning,
		Diffusion: DiffusionConfig{Config: params.Diffusion},
		Branches:  branches.DefaultOptions(),
		Input:     InputConfig{BinaryThreshold: 127},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// LoadFromFile overlays the file at path on the defaults and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SaveToFile(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.EngineParameters().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Branches.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Input.BinaryThreshold < 0 || c.Input.BinaryThreshold > 255 {
		return fmt.Errorf("%w: binary_threshold %v outside [0,255]", ErrInvalidConfig, c.Input.BinaryThreshold)
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "png", "jpeg", "jpg", "gif", "bmp", "tiff", "tif", "webp":
	default:
		return fmt.Errorf("%w: unsupported output format %q", ErrInvalidConfig, c.Output.Format)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) EngineParameters() skeleton.Parameters {
	return skeleton.Parameters{
		Gamma:     c.Skeleton.Gamma,
		Epsilon:   c.Skeleton.Epsilon,
		Pruning:   c.Pruning,
		Diffusion: c.Diffusion.Config,
	}
}

// Settings is the configuration in the form the skeleton algorithm consumes.
func (c *Config) Settings() hjs.Settings {
	return hjs.Settings{
		Parameters:      c.EngineParameters(),
		Branches:        c.Branches,
		Diffusion:       c.Diffusion.Enabled,
		BinaryThreshold: float32(c.Input.BinaryThreshold),
	}
}

// ApplyToParams writes the skeleton algorithm parameters into params.
func (c *Config) ApplyToParams(params map[string]interface{}) {
	for k, v := range c.Settings().ToParameters() {
		params[k] = v
	}
}
