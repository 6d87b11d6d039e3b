// Package ringbuffer provides a fixed-capacity circular store of samples
// addressed by an absolute index. Writes never block and never grow the
// buffer; an index that has gone once around the ring overwrites the oldest
// value stored at the same slot.
package ringbuffer

import "fmt"

// RingBuffer holds the most recent Cap() values written at absolute indices.
type RingBuffer[T any] struct {
	data    []T
	written []bool
	strict  bool // Panic on reading a slot that was never written
}

// New creates and returns a new RingBuffer of the given capacity. When strict is
// true, reading a slot that was never written panics. Otherwise it reads the zero value.
func New[T any](capacity int, strict bool) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ringbuffer capacity %d is invalid, want > 0", capacity)
	}
	rb := &RingBuffer[T]{
		data:    make([]T, capacity),
		written: make([]bool, capacity),
		strict:  strict,
	}
	return rb, nil
}

// Cap returns the fixed capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.data)
}

func (rb *RingBuffer[T]) slot(index int) int {
	n := len(rb.data)
	s := index % n
	if s < 0 {
		s += n
	}
	return s
}

// Write stores value at index mod Cap().
func (rb *RingBuffer[T]) Write(index int, value T) {
	s := rb.slot(index)
	rb.data[s] = value
	rb.written[s] = true
}

// Read returns the value stored at index mod Cap().
func (rb *RingBuffer[T]) Read(index int) T {
	s := rb.slot(index)
	if rb.strict && !rb.written[s] {
		panic(fmt.Sprintf("ringbuffer: read of index %d (slot %d) before it was written", index, s))
	}
	return rb.data[s]
}

// Written tells whether the slot for index has ever been written.
func (rb *RingBuffer[T]) Written(index int) bool {
	return rb.written[rb.slot(index)]
}

// Window appends to dst[:0] the n values at absolute indices first, first+1, ...
// first+n-1 (oldest first) and returns the result. It panics if n exceeds Cap(),
// because such a window would read values that were already overwritten.
func (rb *RingBuffer[T]) Window(first, n int, dst []T) []T {
	if n > len(rb.data) {
		panic(fmt.Sprintf("ringbuffer: window of %d values exceeds capacity %d", n, len(rb.data)))
	}
	dst = dst[:0]
	for i := first; i < first+n; i++ {
		dst = append(dst, rb.Read(i))
	}
	return dst
}
