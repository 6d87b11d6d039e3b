package kinegraph

import (
	"fmt"
	"strings"

	"github.com/usnistgov/kinegraph/internal/ringbuffer"
	"gonum.org/v1/gonum/floats"
)

// DiffMode selects the numerical differentiation scheme.
type DiffMode int

// Names for the possible values of DiffMode
const (
	DiffSimple DiffMode = iota // y[c] - y[c-1], no lag
	DiffHolo                   // Holoborodko smooth noise-robust differentiator, lag 5
)

func (m DiffMode) String() string {
	switch m {
	case DiffSimple:
		return "simple"
	case DiffHolo:
		return "holo"
	default:
		return fmt.Sprintf("DiffMode(%d)", int(m))
	}
}

// ParseDiffMode converts a mode name (case-insensitive) to a DiffMode.
func ParseDiffMode(name string) (DiffMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return DiffSimple, nil
	case "holo":
		return DiffHolo, nil
	default:
		return DiffHolo, fmt.Errorf("differentiation mode %q is not recognized, want \"simple\" or \"holo\"", name)
	}
}

// holoCoefs are the one-sided coefficients of the low-noise differentiator,
// indexed by distance from the window center.
// See http://www.holoborodko.com/pavel/numerical-methods/numerical-derivative/smooth-low-noise-differentiators/
var holoCoefs = [...]float64{0, 42. / 512, 48. / 512, 27. / 512, 8. / 512, 1. / 512}

// HoloRadius is the half-width of the holo kernel and so its lag in samples.
const HoloRadius = len(holoCoefs) - 1

// AccelerationSpan is the fixed backward-difference span used for acceleration,
// whatever the differentiation mode.
const AccelerationSpan = 5

// Differentiator computes derivative samples from a channel's raw history.
type Differentiator struct {
	mode   DiffMode
	kernel []float64 // Antisymmetric holo taps, oldest first
	window []float64 // Scratch space reused on every call
}

// NewDifferentiator creates a Differentiator for the given mode.
func NewDifferentiator(mode DiffMode) (*Differentiator, error) {
	d := &Differentiator{mode: mode}
	switch mode {
	case DiffSimple:
	case DiffHolo:
		n := 2*HoloRadius + 1
		d.kernel = make([]float64, n)
		for j := range d.kernel {
			offset := j - HoloRadius
			switch {
			case offset < 0:
				d.kernel[j] = -holoCoefs[-offset]
			case offset > 0:
				d.kernel[j] = holoCoefs[offset]
			}
		}
		d.window = make([]float64, 0, n)
	default:
		return nil, fmt.Errorf("differentiation mode %v is not implemented", mode)
	}
	return d, nil
}

// Mode returns the differentiation scheme.
func (d *Differentiator) Mode() DiffMode {
	return d.mode
}

// Lag returns the delay (in samples) inherent in the derivative output.
func (d *Differentiator) Lag() int {
	if d.mode == DiffHolo {
		return HoloRadius
	}
	return 0
}

// WarmUp returns the first clock value at which the mode's own scheme applies.
func (d *Differentiator) WarmUp() int {
	if d.mode == DiffHolo {
		return 2 * HoloRadius
	}
	return 1
}

// Velocity returns the derivative of the raw signal at absolute index c.
// Before the holo kernel has a full window it falls back to the simple
// difference, and at c=0 there is no earlier sample so the result is 0.
func (d *Differentiator) Velocity(raw *ringbuffer.RingBuffer[float64], c int) float64 {
	if d.mode == DiffHolo && c >= 2*HoloRadius {
		d.window = raw.Window(c-2*HoloRadius, len(d.kernel), d.window)
		return floats.Dot(d.kernel, d.window)
	}
	if c < 1 {
		return 0
	}
	return raw.Read(c) - raw.Read(c-1)
}

// Acceleration returns vraw[c] - vraw[c-AccelerationSpan], or 0 while c is
// too small for that difference to exist.
func (d *Differentiator) Acceleration(vraw *ringbuffer.RingBuffer[float64], c int) float64 {
	if c < AccelerationSpan {
		return 0
	}
	return vraw.Read(c) - vraw.Read(c-AccelerationSpan)
}
