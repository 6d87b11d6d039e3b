package kinegraph

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Sampler is the interface for live or simulated sources that supply one raw
// sample per tick. The clock argument is the engine's (wrapped) write index.
type Sampler interface {
	Sample(clock int) float64
}

// PointerSampler reports the most recent pointer ordinate, scaled so that 1.0
// is the top of the position display and -1.0 the bottom. The pointer is set
// from whatever goroutine receives input events.
type PointerSampler struct {
	y  float64
	mu sync.Mutex
}

// NewPointerSampler creates a PointerSampler at ordinate 0.
func NewPointerSampler() *PointerSampler {
	return new(PointerSampler)
}

// Set records the latest pointer ordinate.
func (ps *PointerSampler) Set(y float64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.y = y
}

// Sample returns the latest pointer ordinate.
func (ps *PointerSampler) Sample(clock int) float64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.y
}

// PointerOrdinate converts a pixel row (0 at the top) on a display of the given
// height to the [-1, 1] range, 1 being the top.
func PointerOrdinate(yPixel, height float64) float64 {
	return 1.0 - 2.0*yPixel/height
}

// SyntheticSampler generates closed-form test signals plus optional uniform noise.
type SyntheticSampler struct {
	signal string
	noise  float64 // Peak-to-peak amplitude of the added uniform noise
	rng    *rand.Rand
}

// NewSyntheticSampler creates a SyntheticSampler for signal (SignalSine,
// SignalLinear or SignalQuadratic). seed makes the noise reproducible.
func NewSyntheticSampler(signal string, noise float64, seed int64) (*SyntheticSampler, error) {
	switch signal {
	case SignalSine, SignalLinear, SignalQuadratic:
	default:
		return nil, fmt.Errorf("synthetic signal %q is not recognized", signal)
	}
	if noise < 0 {
		return nil, fmt.Errorf("noise amplitude %v is invalid, want >= 0", noise)
	}
	ss := &SyntheticSampler{
		signal: signal,
		noise:  noise,
		rng:    rand.New(rand.NewSource(seed)),
	}
	return ss, nil
}

func (ss *SyntheticSampler) jitter() float64 {
	if ss.noise == 0 {
		return 0
	}
	return (ss.rng.Float64() - 0.5) * ss.noise
}

// Sample returns the signal value at time clock (in ticks).
func (ss *SyntheticSampler) Sample(clock int) float64 {
	t := float64(clock)
	switch ss.signal {
	case SignalSine:
		x := math.Sin(t*0.06) + ss.jitter()
		return 0.01 * math.Floor(100*x) // simulate quantization
	case SignalLinear:
		return t*0.001 + ss.jitter()
	case SignalQuadratic:
		x := float64(clock%100-50) / 50
		return x*x + ss.jitter()
	}
	return 0
}

// NewSampler returns the sampler selected by cfg: a SyntheticSampler when
// cfg.Synthetic names a signal, or else the given live pointer.
func NewSampler(cfg Config, pointer *PointerSampler, seed int64) (Sampler, error) {
	if cfg.Synthetic == "" {
		if pointer == nil {
			return nil, fmt.Errorf("live sampling requested but no pointer source is available")
		}
		return pointer, nil
	}
	return NewSyntheticSampler(cfg.Synthetic, cfg.Noise, seed)
}
