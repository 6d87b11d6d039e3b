package kinegraph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sbinet/npyio"
	"github.com/usnistgov/kinegraph/internal/appendablenpy"
)

// historyDtype describes one record of the per-day sweep history file.
const historyDtype = "[('sweep', '<u4'), ('clock', '<u4'), ('timestamp', '<i8')]"

// SweepWriter stores the cooked contents of each channel at the end of a sweep.
type SweepWriter struct {
	basepath string
	history  *appendablenpy.AppendableNPY
	histFile *os.File
	histDay  string
	sync.Mutex
}

// NewSweepWriter returns a writer that saves sweeps under basepath.
func NewSweepWriter(basepath string) *SweepWriter {
	return &SweepWriter{basepath: basepath}
}

// makeDayDirectory creates directory of the form basepath/20060102 and returns its name.
func makeDayDirectory(basepath string, when time.Time) (string, error) {
	if len(basepath) == 0 {
		return "", fmt.Errorf("BasePath is the empty string")
	}
	dir := filepath.Join(basepath, when.Format("20060102"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteSweep writes the valid prefix of each snapshot to its own .npy file
// named <id>_<channel>.npy and appends a record to the day's history file.
// It returns the names of the files written.
func (w *SweepWriter) WriteSweep(id ulid.ULID, sweep, clock int, snaps []ChannelSnapshot) ([]string, error) {
	w.Lock()
	defer w.Unlock()
	when := ulid.Time(id.Time())
	dir, err := makeDayDirectory(w.basepath, when)
	if err != nil {
		return nil, err
	}
	var filenames []string
	for _, snap := range snaps {
		name := filepath.Join(dir, fmt.Sprintf("%s_%s.npy", id, snap.Name))
		if err := writeNPY(name, snap.Cooked[:snap.LastValid+1]); err != nil {
			return filenames, err
		}
		filenames = append(filenames, name)
	}
	if err := w.appendHistory(dir, uint32(sweep), uint32(clock), when); err != nil {
		return filenames, err
	}
	return filenames, nil
}

func writeNPY(name string, data []float64) error {
	fp, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := npyio.Write(fp, data); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

func (w *SweepWriter) appendHistory(dir string, sweep, clock uint32, when time.Time) error {
	day := filepath.Base(dir)
	if w.history == nil || day != w.histDay {
		if w.histFile != nil {
			w.histFile.Close()
		}
		// Each process starts its own history file, named by its start time.
		name := filepath.Join(dir, fmt.Sprintf("history_%s.npy", KinegraphStartTime.Format("150405")))
		fp, err := os.Create(name)
		if err != nil {
			return err
		}
		history, err := appendablenpy.OpenAppendableNPY(fp, historyDtype)
		if err != nil {
			fp.Close()
			return err
		}
		w.histFile, w.history, w.histDay = fp, history, day
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, sweep)
	binary.Write(buf, binary.LittleEndian, clock)
	binary.Write(buf, binary.LittleEndian, when.UnixNano())
	return w.history.Write([][]byte{buf.Bytes()})
}

// Close closes the history file, if one is open.
func (w *SweepWriter) Close() error {
	w.Lock()
	defer w.Unlock()
	if w.histFile == nil {
		return nil
	}
	err := w.histFile.Close()
	w.histFile, w.history, w.histDay = nil, nil, ""
	return err
}
