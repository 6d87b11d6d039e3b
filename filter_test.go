package kinegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothingFilterWeights(t *testing.T) {
	f, err := NewSmoothingFilter(2, KernelTriangle)
	require.NoError(t, err)
	assert.Equal(t, 5, f.WindowLen())
	assert.Equal(t, 2, f.Lag())
	// Oldest sample weighs most, the newest not at all.
	assert.Equal(t, []float64{4, 3, 2, 1, 0}, f.weights)
	assert.Equal(t, 10.0, f.norm)

	// An impulse at the oldest position is scaled by its weight.
	assert.InDelta(t, 0.4, f.Apply([]float64{1, 0, 0, 0, 0}), 1e-12)
	assert.InDelta(t, 0.0, f.Apply([]float64{0, 0, 0, 0, 1}), 1e-12)

	_, err = NewSmoothingFilter(-1, KernelTriangle)
	assert.Error(t, err)
	_, err = NewSmoothingFilter(1, Kernel(7))
	assert.Error(t, err)
}

func TestSmoothingFilterPreservesConstants(t *testing.T) {
	for _, r := range []int{0, 1, 2, 5, 20} {
		f, err := NewSmoothingFilter(r, KernelTriangle)
		require.NoError(t, err)
		window := make([]float64, f.WindowLen())
		for i := range window {
			window[i] = -3.25
		}
		assert.InDelta(t, -3.25, f.Apply(window), 1e-12, "radius %d", r)
	}
}

func TestSmoothingFilterPanicsOnShortWindow(t *testing.T) {
	f, err := NewSmoothingFilter(3, KernelTriangle)
	require.NoError(t, err)
	assert.Panics(t, func() { f.Apply([]float64{1, 2, 3}) })
}

func TestParseKernel(t *testing.T) {
	k, err := ParseKernel(" Triangle ")
	assert.NoError(t, err)
	assert.Equal(t, KernelTriangle, k)
	assert.Equal(t, "triangle", k.String())
	_, err = ParseKernel("gaussian")
	assert.Error(t, err)
}
