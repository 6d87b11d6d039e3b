package kinegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelWarmUp(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{Name: "v", DisplayLength: 10, Radius: 3,
		Kernel: KernelTriangle, Prescale: 2, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, 16, ch.RawCapacity())
	assert.Equal(t, NoValidIndex, ch.LastValid())

	for c := 0; c < 6; c++ {
		assert.False(t, ch.Update(c, 1.5))
		assert.Equal(t, NoValidIndex, ch.LastValid(), "clock %d", c)
	}
	assert.True(t, ch.Update(6, 1.5))
	assert.Equal(t, 3, ch.LastValid())
	// Constant input is preserved, after the prescale.
	assert.InDelta(t, 3.0, ch.Cooked(3), 1e-12)
	assert.InDelta(t, 3.0, ch.Raw().Read(6), 1e-12)

	snap := ch.Snapshot()
	assert.Equal(t, "v", snap.Name)
	assert.Equal(t, 3, snap.LastValid)
	assert.Len(t, snap.Cooked, 10)
	snap.Cooked[3] = 99
	assert.InDelta(t, 3.0, ch.Cooked(3), 1e-12, "snapshot must be a copy")

	ch.Reset()
	assert.Equal(t, NoValidIndex, ch.LastValid())
	assert.InDelta(t, 3.0, ch.Raw().Read(6), 1e-12, "reset keeps raw history")
}

func TestChannelRadiusZero(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{Name: "p", DisplayLength: 4, Radius: 0, Prescale: 1, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, 4, ch.RawCapacity())
	assert.True(t, ch.Update(0, 7))
	assert.Equal(t, 0, ch.LastValid())
	assert.Equal(t, 7.0, ch.Cooked(0))
}

func TestChannelDisabled(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{Name: "a", DisplayLength: 4, Radius: 1, Prescale: 1})
	require.NoError(t, err)
	for c := 0; c < 4; c++ {
		assert.False(t, ch.Update(c, 1))
	}
	assert.Equal(t, NoValidIndex, ch.LastValid())
}

func TestNewChannelErrors(t *testing.T) {
	_, err := NewChannel(ChannelConfig{Name: "x", DisplayLength: 0})
	assert.Error(t, err)
	_, err = NewChannel(ChannelConfig{Name: "x", DisplayLength: 5, Radius: -2})
	assert.Error(t, err)
}
