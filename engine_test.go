package kinegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(n, r int) Config {
	cfg := DefaultConfig()
	cfg.DisplayLength = n
	cfg.SmoothingRadius = r
	cfg.DiffMode = DiffSimple.String()
	return cfg
}

func TestEngineCapacity(t *testing.T) {
	e, err := NewEngine(testConfig(10, 4))
	require.NoError(t, err)
	assert.Equal(t, 12, e.Capacity(), "position channel has the shortest raw buffer")
	assert.Len(t, e.Channels(), 3)

	e, err = NewEngine(testConfig(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 10, e.Capacity())
}

func TestEngineSweep(t *testing.T) {
	e, err := NewEngine(testConfig(10, 2))
	require.NoError(t, err)
	M := e.Capacity()
	require.Equal(t, 12, M)

	for c := 0; c < M-2; c++ {
		assert.True(t, e.Tick(float64(c)))
		assert.Equal(t, Running, e.State(), "tick %d", c)
		assert.Equal(t, c+1, e.Clock())
	}
	// The tick that writes index M-2 ends the sweep.
	assert.True(t, e.Tick(0))
	assert.Equal(t, Paused, e.State())
	assert.Equal(t, 1, e.Sweeps())
	assert.Equal(t, 0, e.Clock())

	// Paused ticks change nothing.
	before := e.Snapshot()
	for i := 0; i < 5; i++ {
		assert.False(t, e.Tick(100))
	}
	assert.Equal(t, before, e.Snapshot())
	assert.Equal(t, 0, e.Clock())
	assert.Equal(t, 1, e.Sweeps())

	// Restart forgets validity but not raw history.
	assert.True(t, e.Restart())
	assert.False(t, e.Restart())
	for _, ch := range e.Channels() {
		assert.Equal(t, NoValidIndex, ch.LastValid(), ch.Name)
	}
	pos := e.Channel(PositionName)
	assert.Equal(t, 5.0, pos.Raw().Read(5))

	// The next tick writes index 0.
	assert.True(t, e.Tick(42))
	assert.Equal(t, 42.0, pos.Raw().Read(0))
	assert.Equal(t, 1, e.Clock())
}

func TestEngineRampDerivatives(t *testing.T) {
	cfg := testConfig(40, 2)
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	const slope = 0.5
	for c := 0; c < 30; c++ {
		e.Tick(slope * float64(c))
	}
	vel := e.Channel(VelocityName)
	// Raw velocity is the prescaled difference for every c >= 1.
	for c := 1; c < 30; c++ {
		assert.InDelta(t, slope*cfg.VelocityPrescale, vel.Raw().Read(c), 1e-12)
	}
	// Cooked velocity is valid from 2r and constant.
	assert.Equal(t, 29-2, vel.LastValid())
	assert.InDelta(t, slope*cfg.VelocityPrescale, vel.Cooked(vel.LastValid()), 1e-12)

	acc := e.Channel(AccelerationName)
	for c := AccelerationSpan + 1; c < 30; c++ {
		assert.InDelta(t, 0.0, acc.Raw().Read(c), 1e-12, "acceleration of a ramp at %d", c)
	}
}

func TestEngineQuadraticAcceleration(t *testing.T) {
	cfg := testConfig(40, 1)
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	for c := 0; c < 30; c++ {
		e.Tick(float64(c * c))
	}
	// v[c] = 16(2c-1); a[c] = 2(v[c]-v[c-5]) = 2*16*10 once v[c-5] is a real difference.
	acc := e.Channel(AccelerationName)
	want := cfg.AccelerationPrescale * cfg.VelocityPrescale * 2 * AccelerationSpan
	for c := AccelerationSpan + 1; c < 30; c++ {
		assert.InDelta(t, want, acc.Raw().Read(c), 1e-9, "clock %d", c)
	}
}

func TestEngineHoloShift(t *testing.T) {
	cfg := testConfig(20, 2)
	cfg.DiffMode = DiffHolo.String()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Channel(PositionName).Shift())
	assert.Equal(t, -5, e.Channel(VelocityName).Shift())
	assert.Equal(t, -10, e.Channel(AccelerationName).Shift())
}

func TestEngineWithoutAcceleration(t *testing.T) {
	cfg := testConfig(10, 2)
	cfg.Acceleration = false
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Len(t, e.Channels(), 2)
	assert.Nil(t, e.Channel(AccelerationName))
	for i := 0; i < 11; i++ {
		e.Tick(1)
	}
	assert.Equal(t, Paused, e.State())
}

func TestEngineEvents(t *testing.T) {
	e, err := NewEngine(testConfig(6, 1))
	require.NoError(t, err)
	events := e.Subscribe()
	M := e.Capacity()
	for i := 0; i < M+3; i++ {
		e.Tick(float64(i))
	}
	e.Close()

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, M)
	for c := 0; c < M-1; c++ {
		assert.Equal(t, EventTick, got[c].Kind)
		assert.Equal(t, c, got[c].Clock)
		assert.Len(t, got[c].Updates, 3)
	}
	end := got[M-1]
	assert.Equal(t, EventSweepEnd, end.Kind)
	assert.Equal(t, "SWEEPEND", end.Kind.String())
	assert.Equal(t, M-2, end.Clock)
	assert.Equal(t, 1, end.Sweep)
	require.Len(t, end.Snapshots, 3)
	assert.Equal(t, PositionName, end.Snapshots[0].Name)
	assert.Equal(t, M-3, end.Snapshots[0].LastValid)
}

func TestEngineInvalidConfigUsesDefaults(t *testing.T) {
	cfg := testConfig(10, -4)
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultSmoothingRadius, e.Config().SmoothingRadius)
}
