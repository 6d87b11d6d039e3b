package main

import (
	"bytes"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := summarize([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.N)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 1.0, s.First)
	assert.Equal(t, 4.0, s.Last)

	empty := summarize(nil)
	assert.Equal(t, 0, empty.N)
}

func TestReadSweep(t *testing.T) {
	want := []float64{0.5, -0.25, 3}
	buf := new(bytes.Buffer)
	require.NoError(t, npyio.Write(buf, want))
	got, err := readSweep(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = readSweep(bytes.NewReader([]byte("not a numpy file")))
	assert.Error(t, err)
}
