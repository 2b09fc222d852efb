package algorithms

import (
	"testing"

	"hjs-skeleton/internal/algorithms/fluxmap"
	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/algorithms/smoothing"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/raster/rastertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(rastertest.Geometry{}, nil, logger.NewNop())
}

func TestManagerRegistersAlgorithms(t *testing.T) {
	m := newTestManager()

	assert.Equal(t, []string{smoothing.Name, fluxmap.Name, hjs.Name}, m.GetAvailableAlgorithms())
	assert.Equal(t, hjs.Name, m.GetCurrentAlgorithm())

	for _, name := range m.GetAvailableAlgorithms() {
		alg, err := m.GetAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, name, alg.GetName())
		assert.NoError(t, alg.ValidateParameters(m.GetParameters(name)), name)
		_, ok := alg.(ContextualAlgorithm)
		assert.True(t, ok, "%s should support cancellation", name)
	}

	alg, err := m.GetAlgorithm(hjs.Name)
	require.NoError(t, err)
	_, ok := alg.(ResultProvider)
	assert.True(t, ok)
}

func TestManagerParameters(t *testing.T) {
	m := newTestManager()

	params := m.GetParameters(hjs.Name)
	params["gamma"] = 9.0
	assert.Equal(t, 2.5, m.GetParameters(hjs.Name)["gamma"], "returned map must be a copy")

	require.NoError(t, m.SetParameter(hjs.Name, "gamma", 1.5))
	assert.Equal(t, 1.5, m.GetParameters(hjs.Name)["gamma"])

	require.NoError(t, m.SetParameters(hjs.Name, map[string]interface{}{"epsilon": 0.5, "diffusion": true}))
	got := m.GetParameters(hjs.Name)
	assert.Equal(t, 0.5, got["epsilon"])
	assert.Equal(t, true, got["diffusion"])
	assert.Equal(t, 1.5, got["gamma"])

	assert.Error(t, m.SetParameter("Otsu", "gamma", 1.0))
	assert.Error(t, m.SetParameters("Otsu", nil))
	assert.Empty(t, m.GetParameters("Otsu"))
}

func TestManagerCurrentAlgorithm(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.SetCurrentAlgorithm(fluxmap.Name))
	assert.Equal(t, fluxmap.Name, m.GetCurrentAlgorithm())

	assert.Error(t, m.SetCurrentAlgorithm("unknown"))
	assert.Equal(t, fluxmap.Name, m.GetCurrentAlgorithm())

	_, err := m.GetAlgorithm("unknown")
	assert.Error(t, err)
}
