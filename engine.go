package kinegraph

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/usnistgov/kinegraph/internal/eventqueue"
)

// EngineState is used to indicate whether the Engine accepts samples.
type EngineState int

// Names for the possible values of EngineState
const (
	Running EngineState = iota // Samples are ingested
	Paused                     // A sweep ended; samples are dropped until Restart
)

func (s EngineState) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	default:
		return fmt.Sprintf("EngineState(%d)", int(s))
	}
}

// EventKind distinguishes the notifications an Engine sends.
type EventKind int

// Names for the possible values of EventKind
const (
	EventTick     EventKind = iota // One tick completed
	EventSweepEnd                  // The Running -> Paused transition happened
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "TICK"
	case EventSweepEnd:
		return "SWEEPEND"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// ChannelUpdate tells the renderer what changed in one channel during a tick.
type ChannelUpdate struct {
	Name      string
	LastValid int
	Shift     int
	Value     float64 // Cooked value at LastValid (0 if LastValid is NoValidIndex)
}

// Event is a notification from the Engine. Clock is the write index of the
// tick that produced it; Sweep counts completed sweeps. A SWEEPEND event
// carries copies of every enabled channel as they stood when the sweep ended.
type Event struct {
	Kind      EventKind
	Clock     int
	Sweep     int
	Updates   []ChannelUpdate
	Snapshots []ChannelSnapshot
}

// Names of the three channels.
const (
	PositionName     = "position"
	VelocityName     = "velocity"
	AccelerationName = "acceleration"
)

// Engine owns the position, velocity and acceleration channels and the clock
// they share. Each Tick ingests one raw sample, filters it, differentiates it
// twice, and checks for the end of a sweep. An Engine has a single writer: it
// takes no locks, so callers must serialize Tick, Restart and reads.
type Engine struct {
	cfg          Config
	position     *Channel
	velocity     *Channel
	acceleration *Channel
	channels     []*Channel // The enabled channels, upstream first
	diff         *Differentiator
	clock        int
	capacity     int // Clock modulus: the smallest raw capacity among enabled channels
	state        EngineState
	sweeps       int
	events       *eventqueue.Queue[Event]
}

// NewEngine creates an Engine. Invalid fields of cfg are reported to the
// ProblemLogger and replaced by defaults, so the only errors returned are
// failures to allocate a channel.
func NewEngine(cfg Config) (*Engine, error) {
	reportConfigErrors(cfg.Validate())
	if cfg.Debug {
		UpdateLogger.Printf("engine configuration:\n%s", spew.Sdump(cfg))
	}

	diff, err := NewDifferentiator(cfg.Mode())
	if err != nil {
		return nil, err
	}
	lag := diff.Lag()
	kernel := cfg.Kernel()

	e := &Engine{cfg: cfg, diff: diff, state: Running}
	specs := []struct {
		dest **Channel
		cc   ChannelConfig
	}{
		{&e.position, ChannelConfig{Name: PositionName, Radius: PositionRadius,
			Prescale: cfg.PositionPrescale, Shift: 0, Enabled: true}},
		{&e.velocity, ChannelConfig{Name: VelocityName, Radius: cfg.SmoothingRadius,
			Prescale: cfg.VelocityPrescale, Shift: -lag, Enabled: true}},
		{&e.acceleration, ChannelConfig{Name: AccelerationName, Radius: cfg.SmoothingRadius,
			Prescale: cfg.AccelerationPrescale, Shift: -2 * lag, Enabled: cfg.Acceleration}},
	}
	for _, s := range specs {
		s.cc.DisplayLength = cfg.DisplayLength
		s.cc.Kernel = kernel
		s.cc.Strict = cfg.Debug
		ch, err := NewChannel(s.cc)
		if err != nil {
			return nil, err
		}
		*s.dest = ch
		if ch.Enabled {
			e.channels = append(e.channels, ch)
		}
	}

	e.capacity = e.position.RawCapacity()
	for _, ch := range e.channels {
		if ch.RawCapacity() < e.capacity {
			e.capacity = ch.RawCapacity()
		}
	}
	return e, nil
}

// Subscribe returns the channel on which the Engine publishes its events.
// Events are queued without bound, so a Tick never waits for the reader.
// Before the first call to Subscribe no events are produced.
func (e *Engine) Subscribe() <-chan Event {
	if e.events == nil {
		e.events = eventqueue.New[Event]()
	}
	return e.events.Out()
}

// Close ends the event stream. The Engine must not Tick afterwards.
func (e *Engine) Close() {
	if e.events != nil {
		e.events.Close()
	}
}

func (e *Engine) publish(ev Event) {
	if e.events != nil {
		e.events.Push(ev)
	}
}

// Tick runs one ingest -> filter -> differentiate -> sweep-check step on the
// raw sample. While Paused it drops the sample and returns false.
func (e *Engine) Tick(raw float64) bool {
	if e.state == Paused {
		return false
	}
	c := e.clock

	e.position.Update(c, raw)
	v := e.diff.Velocity(e.position.Raw(), c)
	e.velocity.Update(c, v)
	if e.acceleration.Enabled {
		a := e.diff.Acceleration(e.velocity.Raw(), c)
		e.acceleration.Update(c, a)
	}

	if e.events != nil {
		e.publish(Event{Kind: EventTick, Clock: c, Sweep: e.sweeps, Updates: e.updates()})
	}

	// The sweep ends one tick before the shortest raw buffer would wrap.
	if c == e.capacity-2 {
		e.state = Paused
		e.sweeps++
		e.clock = 0
		if e.events != nil {
			e.publish(Event{Kind: EventSweepEnd, Clock: c, Sweep: e.sweeps, Snapshots: e.Snapshot()})
		}
		return true
	}
	e.clock = (c + 1) % e.capacity
	return true
}

func (e *Engine) updates() []ChannelUpdate {
	ups := make([]ChannelUpdate, len(e.channels))
	for i, ch := range e.channels {
		ups[i] = ChannelUpdate{Name: ch.Name, LastValid: ch.LastValid(), Shift: ch.Shift()}
		if ch.LastValid() != NoValidIndex {
			ups[i].Value = ch.Cooked(ch.LastValid())
		}
	}
	return ups
}

// Restart moves a Paused engine back to Running. Every channel forgets its
// valid data, but the clock and the raw histories are left as they are, so
// filtering continues from the old samples until new ones replace them.
// It returns false (and does nothing) if the engine was already Running.
func (e *Engine) Restart() bool {
	if e.state == Running {
		return false
	}
	e.state = Running
	for _, ch := range e.channels {
		ch.Reset()
	}
	return true
}

// State returns Running or Paused.
func (e *Engine) State() EngineState {
	return e.state
}

// Clock returns the write index of the next tick.
func (e *Engine) Clock() int {
	return e.clock
}

// Capacity returns the clock modulus.
func (e *Engine) Capacity() int {
	return e.capacity
}

// Sweeps returns the number of completed sweeps.
func (e *Engine) Sweeps() int {
	return e.sweeps
}

// Config returns the validated configuration in force.
func (e *Engine) Config() Config {
	return e.cfg
}

// Differentiator returns the differentiator in use.
func (e *Engine) Differentiator() *Differentiator {
	return e.diff
}

// Channels returns the enabled channels, upstream first.
func (e *Engine) Channels() []*Channel {
	return e.channels
}

// Channel returns the named channel, or nil if there is none or it is disabled.
func (e *Engine) Channel(name string) *Channel {
	for _, ch := range e.channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// Snapshot returns copies of every enabled channel's displayable state.
func (e *Engine) Snapshot() []ChannelSnapshot {
	snaps := make([]ChannelSnapshot, len(e.channels))
	for i, ch := range e.channels {
		snaps[i] = ch.Snapshot()
	}
	return snaps
}
