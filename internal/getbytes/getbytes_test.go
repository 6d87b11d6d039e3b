package getbytes

import (
	"encoding/hex"
	"testing"
)

func TestFromSlice(t *testing.T) {
	var byteslicetests = []struct {
		byteslice []byte
		expect    string
	}{
		{FromSlice([]uint8{0xAB, 0xCD, 0xEF, 0x01}), "abcdef01"},
		{FromSlice([]uint16{0xABCD, 0xEF01}), "cdab01ef"},
		{FromSlice([]int32{1, 2}), "0100000002000000"},
		{FromSlice([]float32{1, 2}), "0000803f00000040"},
		{FromSlice([]float64{2, 4}), "00000000000000400000000000001040"},
		{FromSlice([]float64{}), ""},
		{FromSlice([]int64(nil)), ""},
		{FromValue(float64(-2)), "00000000000000c0"},
		{FromValue(uint16(0x1234)), "3412"},
	}
	for _, test := range byteslicetests {
		encodedStr := hex.EncodeToString(test.byteslice)
		if expectStr := test.expect; encodedStr != expectStr {
			t.Errorf("want %v, have %v", expectStr, encodedStr)
		}
	}
}

func TestFromSliceAliases(t *testing.T) {
	d := []float64{1, 2}
	b := FromSlice(d)
	d[0] = 2
	if hex.EncodeToString(b[:8]) != "0000000000000040" {
		t.Errorf("FromSlice result does not alias its input")
	}
	v := FromValue(d[1])
	d[1] = 0
	if hex.EncodeToString(v) != "0000000000000040" {
		t.Errorf("FromValue result aliases its input, want a copy")
	}
}
