package kinegraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUpdateFrames(t *testing.T) {
	u := ClientUpdate{tag: "STATUS", state: ServerStatus{Running: true, Clock: 7}}
	tag, body, err := u.frames()
	require.NoError(t, err)
	assert.Equal(t, "STATUS", string(tag))
	var status ServerStatus
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.Running)
	assert.Equal(t, 7, status.Clock)

	raw := ClientUpdate{tag: "SWEEPDATA", payload: []byte{1, 2, 3}}
	_, body, err = raw.frames()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, body)

	bad := ClientUpdate{tag: "BAD", state: make(chan int)}
	_, _, err = bad.frames()
	assert.Error(t, err)
}

func TestSweepDataEncoding(t *testing.T) {
	snap := ChannelSnapshot{Name: "velocity", Cooked: []float64{1.5, -2, 7}, LastValid: 1}
	payload := sweepData(snap)
	require.Len(t, payload, 2+len("velocity")+2*8)
	assert.Equal(t, []byte{8, 0}, payload[:2])
	assert.Equal(t, "velocity", string(payload[2:10]))
}
