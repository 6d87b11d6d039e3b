package kinegraph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readNPY(t *testing.T, name string) []float64 {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	var data []float64
	require.NoError(t, npyio.Read(f, &data))
	return data
}

func TestSweepWriter(t *testing.T) {
	base := t.TempDir()
	w := NewSweepWriter(base)
	defer w.Close()

	when := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	id := ulid.MustNew(ulid.Timestamp(when), ulid.DefaultEntropy())
	snaps := []ChannelSnapshot{
		{Name: PositionName, Cooked: []float64{1, 2, 3, 0, 0}, LastValid: 2},
		{Name: VelocityName, Cooked: []float64{9, 9, 9, 9, 9}, LastValid: NoValidIndex},
	}
	files, err := w.WriteSweep(id, 1, 4, snaps)
	require.NoError(t, err)
	require.Len(t, files, 2)

	day := when.Local().Format("20060102")
	assert.Equal(t, filepath.Join(base, day, id.String()+"_position.npy"), files[0])
	assert.Equal(t, []float64{1, 2, 3}, readNPY(t, files[0]))
	assert.Empty(t, readNPY(t, files[1]))

	_, err = w.WriteSweep(id, 2, 4, snaps[:1])
	require.NoError(t, err)
	assert.Equal(t, 2, w.history.Items())
	matches, _ := filepath.Glob(filepath.Join(base, day, "history_*.npy"))
	assert.Len(t, matches, 1)
}

func TestSweepWriterNeedsPath(t *testing.T) {
	w := NewSweepWriter("")
	_, err := w.WriteSweep(ulid.Make(), 1, 0, nil)
	assert.Error(t, err)
	assert.NoError(t, w.Close())
}
