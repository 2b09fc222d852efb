package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hjs-skeleton/internal/algorithms/fluxmap"
	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/algorithms/smoothing"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/skeleton"
)

// Algorithm defines the interface for image processing algorithms
type Algorithm interface {
	Process(input *safe.Mat, params map[string]interface{}) (*safe.Mat, error)
	ValidateParameters(params map[string]interface{}) error
	GetDefaultParameters() map[string]interface{}
	GetName() string
}

// ContextualAlgorithm extends Algorithm with context support for cancellation
type ContextualAlgorithm interface {
	Algorithm
	ProcessWithContext(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error)
}

// ResultProvider is implemented by algorithms that keep the full skeleton
// result of their last run.
type ResultProvider interface {
	LastResult() (*skeleton.Result, error)
}

type Manager struct {
	algorithms       map[string]Algorithm
	currentAlgorithm string
	parameters       map[string]map[string]interface{}
	mu               sync.RWMutex
}

func NewManager(geometry skeleton.Geometry, tracker safe.MemoryTracker, log logger.Logger) *Manager {
	manager := &Manager{
		algorithms:       make(map[string]Algorithm),
		currentAlgorithm: hjs.Name,
		parameters:       make(map[string]map[string]interface{}),
	}

	manager.registerAlgorithms(geometry, tracker, log)
	manager.initializeDefaultParameters()

	return manager
}

func (m *Manager) registerAlgorithms(geometry skeleton.Geometry, tracker safe.MemoryTracker, log logger.Logger) {
	skeletonAlg := hjs.NewProcessor(geometry, tracker, log)
	fluxAlg := fluxmap.NewProcessor(geometry, tracker)
	diffusionAlg := smoothing.NewProcessor(geometry, tracker)

	m.algorithms[skeletonAlg.GetName()] = skeletonAlg
	m.algorithms[fluxAlg.GetName()] = fluxAlg
	m.algorithms[diffusionAlg.GetName()] = diffusionAlg
}

func (m *Manager) initializeDefaultParameters() {
	for name, algorithm := range m.algorithms {
		m.parameters[name] = algorithm.GetDefaultParameters()
	}
}

func (m *Manager) SetCurrentAlgorithm(algorithm string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.algorithms[algorithm]; !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	m.currentAlgorithm = algorithm
	return nil
}

func (m *Manager) GetCurrentAlgorithm() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentAlgorithm
}

func (m *Manager) GetParameters(algorithm string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if params, exists := m.parameters[algorithm]; exists {
		result := make(map[string]interface{})
		for k, v := range params {
			result[k] = v
		}
		return result
	}

	return make(map[string]interface{})
}

func (m *Manager) SetParameter(algorithm, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params, exists := m.parameters[algorithm]; exists {
		params[name] = value
		return nil
	}

	return fmt.Errorf("unknown algorithm: %s", algorithm)
}

// SetParameters merges values into the stored parameters of algorithm.
func (m *Manager) SetParameters(algorithm string, values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	params, exists := m.parameters[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}
	for k, v := range values {
		params[k] = v
	}
	return nil
}

func (m *Manager) GetAlgorithm(name string) (Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if algorithm, exists := m.algorithms[name]; exists {
		return algorithm, nil
	}

	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

func (m *Manager) GetAvailableAlgorithms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	algorithms := make([]string, 0, len(m.algorithms))
	for name := range m.algorithms {
		algorithms = append(algorithms, name)
	}
	sort.Strings(algorithms)

	return algorithms
}
