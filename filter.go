package kinegraph

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Kernel names a weighting scheme for the SmoothingFilter.
type Kernel int

// Names for the possible values of Kernel
const (
	KernelTriangle Kernel = iota // Weight grows linearly with distance from the newest sample
)

func (k Kernel) String() string {
	switch k {
	case KernelTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// ParseKernel converts a kernel name (case-insensitive) to a Kernel.
func ParseKernel(name string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "triangle":
		return KernelTriangle, nil
	default:
		return KernelTriangle, fmt.Errorf("filter kernel %q is not recognized, want \"triangle\"", name)
	}
}

// SmoothingFilter turns a window of 2r+1 raw samples into one smoothed sample.
// The output belongs r samples before the newest sample of the window, so a
// channel using it lags the raw data by r samples.
//
// The triangle weight of raw index i is |i-c|, where c is the newest index:
// zero at the newest sample and largest (2r) at the oldest one.
type SmoothingFilter struct {
	radius  int
	kernel  Kernel
	weights []float64 // One per window position, oldest first
	norm    float64   // Sum of weights
}

// NewSmoothingFilter creates a filter of the given radius and kernel.
func NewSmoothingFilter(radius int, kernel Kernel) (*SmoothingFilter, error) {
	if radius < 0 {
		return nil, fmt.Errorf("smoothing radius %d is invalid, want >= 0", radius)
	}
	f := &SmoothingFilter{radius: radius, kernel: kernel}
	n := 2*radius + 1
	f.weights = make([]float64, n)
	switch kernel {
	case KernelTriangle:
		for j := range f.weights {
			f.weights[j] = float64(n - 1 - j)
		}
	default:
		return nil, fmt.Errorf("filter kernel %v is not implemented", kernel)
	}
	f.norm = floats.Sum(f.weights)
	return f, nil
}

// Radius returns the window radius r.
func (f *SmoothingFilter) Radius() int {
	return f.radius
}

// Lag returns how many samples the output trails the newest input.
func (f *SmoothingFilter) Lag() int {
	return f.radius
}

// Kernel returns the weighting scheme.
func (f *SmoothingFilter) Kernel() Kernel {
	return f.kernel
}

// WindowLen returns the number of raw samples Apply needs, 2r+1.
func (f *SmoothingFilter) WindowLen() int {
	return len(f.weights)
}

// Apply computes the weighted average of window, which must hold WindowLen()
// raw samples ordered oldest first. With r=0 all weights vanish, so the
// filter passes its single sample through unchanged.
func (f *SmoothingFilter) Apply(window []float64) float64 {
	if len(window) != len(f.weights) {
		panic(fmt.Sprintf("SmoothingFilter.Apply got %d samples, want %d", len(window), len(f.weights)))
	}
	if f.radius == 0 {
		return window[0]
	}
	return floats.Dot(f.weights, window) / f.norm
}
