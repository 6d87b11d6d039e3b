// Package appendablenpy writes numpy *.npy files of structured records that
// can be extended one batch at a time while remaining readable.
package appendablenpy

import (
	"fmt"
	"io"
)

// npy file header must be a multiple of 64 bytes
const headerUnits = 64

const preheaderSize = 10

// shapeDigits is the width reserved in the header for the record count.
const shapeDigits = 10

// WriteSeeker is the part of *os.File that AppendableNPY needs.
type WriteSeeker interface {
	io.Writer
	io.Seeker
}

// AppendableNPY writes records of a fixed dtype and keeps the header's shape current.
type AppendableNPY struct {
	writer       WriteSeeker
	dtype        string
	shapePtr     int
	itemsWritten int
}

// OpenAppendableNPY writes a header for zero records of the given dtype
// description, such as "[('sweep', '<u4'), ('clock', '<u4')]".
func OpenAppendableNPY(w WriteSeeker, dtype string) (*AppendableNPY, error) {
	an := &AppendableNPY{writer: w, dtype: dtype}
	header := []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 0x01, 0x00, 0, 0}
	header = append(header, []byte("{'descr': ")...)
	header = append(header, []byte(dtype)...)
	header = append(header, []byte(", 'fortran_order': False, 'shape': (")...)
	an.shapePtr = len(header)
	header = append(header, []byte(fmt.Sprintf("%-*d,), }", shapeDigits, 0))...)

	// Header size goes into bytes 8-9, little-endian.
	nunits := (len(header) + headerUnits) / headerUnits
	headerSize := nunits*headerUnits - preheaderSize
	if headerSize > 0xffff {
		return nil, fmt.Errorf("dtype description too long for a version 1 header")
	}
	header[8] = byte(headerSize % 256)
	header[9] = byte(headerSize / 256)

	// Pad with spaces plus one newline to the promised size.
	for len(header) < headerSize+preheaderSize-1 {
		header = append(header, ' ')
	}
	header = append(header, '\n')
	if _, err := an.writer.Write(header); err != nil {
		return nil, err
	}
	return an, nil
}

// Items returns the number of records written so far.
func (an *AppendableNPY) Items() int {
	return an.itemsWritten
}

// Write appends the records, each already encoded in the file's dtype, and
// updates the header's record count.
func (an *AppendableNPY) Write(records [][]byte) error {
	for _, d := range records {
		if _, err := an.writer.Write(d); err != nil {
			return err
		}
	}

	an.itemsWritten += len(records)
	shape := []byte(fmt.Sprintf("%-*d", shapeDigits, an.itemsWritten))
	if _, err := an.writer.Seek(int64(an.shapePtr), io.SeekStart); err != nil {
		return err
	}
	if _, err := an.writer.Write(shape); err != nil {
		return err
	}
	_, err := an.writer.Seek(0, io.SeekEnd)
	return err
}
