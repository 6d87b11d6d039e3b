// Package getbytes views numeric slices as raw bytes without copying.
// The byte order is that of the host, which is little-endian on every
// platform this program is built for.
package getbytes

import (
	"unsafe"
)

// Number is any fixed-size numeric type that can be viewed as bytes.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FromSlice converts a []T to []byte using unsafe. The result aliases d.
func FromSlice[T Number](d []T) []byte {
	if len(d) == 0 {
		return []byte{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0])
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), outlength)
}

// FromValue converts a single value to a freshly allocated []byte.
func FromValue[T Number](d T) []byte {
	b := FromSlice([]T{d})
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
