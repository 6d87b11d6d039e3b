package kinegraph

import (
	"fmt"

	"github.com/usnistgov/kinegraph/internal/ringbuffer"
)

// NoValidIndex is the LastValid value of a channel holding no valid cooked data.
const NoValidIndex = -1

// ChannelConfig holds the fixed parameters of one Channel.
type ChannelConfig struct {
	Name          string
	DisplayLength int     // N, the length of the cooked sequence
	Radius        int     // Smoothing radius r
	Kernel        Kernel  // Smoothing weights
	Prescale      float64 // Multiplies each raw sample before it is stored
	Shift         int     // Display shift (samples) applied by the renderer
	Enabled       bool
	Strict        bool // Panic on reads of never-written raw samples
}

// Channel couples the raw sample history of one signal with its smoothed
// ("cooked") sequence. Raw capacity is N+2r so that a full filter window
// always fits behind the newest sample.
type Channel struct {
	Name      string
	Enabled   bool
	raw       *ringbuffer.RingBuffer[float64]
	cooked    []float64
	filter    *SmoothingFilter
	prescale  float64
	shift     int
	lastValid int
	window    []float64
}

// NewChannel creates and initializes a new Channel.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if cfg.DisplayLength <= 0 {
		return nil, fmt.Errorf("channel %s: display length %d is invalid, want > 0", cfg.Name, cfg.DisplayLength)
	}
	filter, err := NewSmoothingFilter(cfg.Radius, cfg.Kernel)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", cfg.Name, err)
	}
	raw, err := ringbuffer.New[float64](cfg.DisplayLength+2*cfg.Radius, cfg.Strict)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", cfg.Name, err)
	}
	ch := &Channel{
		Name:      cfg.Name,
		Enabled:   cfg.Enabled,
		raw:       raw,
		cooked:    make([]float64, cfg.DisplayLength),
		filter:    filter,
		prescale:  cfg.Prescale,
		shift:     cfg.Shift,
		lastValid: NoValidIndex,
		window:    make([]float64, 0, filter.WindowLen()),
	}
	return ch, nil
}

// Update stores one raw sample at absolute index clock and, once a full
// filter window is available, computes the cooked sample r positions back.
// It returns whether a cooked sample was produced.
func (ch *Channel) Update(clock int, sample float64) bool {
	if !ch.Enabled {
		return false
	}
	ch.raw.Write(clock, sample*ch.prescale)
	r := ch.filter.Radius()
	if clock < 2*r {
		return false
	}
	ch.window = ch.raw.Window(clock-2*r, ch.filter.WindowLen(), ch.window)
	idx := clock - r
	ch.cooked[idx] = ch.filter.Apply(ch.window)
	ch.lastValid = idx
	return true
}

// Reset marks the channel as holding no valid cooked data. Buffers are not cleared.
func (ch *Channel) Reset() {
	ch.lastValid = NoValidIndex
}

// Raw returns the raw (prescaled) sample history.
func (ch *Channel) Raw() *ringbuffer.RingBuffer[float64] {
	return ch.raw
}

// RawCapacity returns the capacity of the raw history, N+2r.
func (ch *Channel) RawCapacity() int {
	return ch.raw.Cap()
}

// Radius returns the smoothing radius.
func (ch *Channel) Radius() int {
	return ch.filter.Radius()
}

// LastValid returns the newest cooked index, or NoValidIndex.
func (ch *Channel) LastValid() int {
	return ch.lastValid
}

// Shift returns the static display shift.
func (ch *Channel) Shift() int {
	return ch.shift
}

// Cooked returns the cooked value at index i of the display window.
func (ch *Channel) Cooked(i int) float64 {
	return ch.cooked[i]
}

// ChannelSnapshot is a read-only copy of a Channel's displayable state.
type ChannelSnapshot struct {
	Name      string
	Cooked    []float64
	LastValid int
	Shift     int
}

// Snapshot returns a copy of the cooked sequence and its bookkeeping.
func (ch *Channel) Snapshot() ChannelSnapshot {
	cooked := make([]float64, len(ch.cooked))
	copy(cooked, ch.cooked)
	return ChannelSnapshot{Name: ch.Name, Cooked: cooked, LastValid: ch.lastValid, Shift: ch.shift}
}
