// Package eventqueue provides an unbounded FIFO whose producer side never
// blocks for longer than a goroutine hand-off. Items enter with Push and leave
// through the channel returned by Out.
package eventqueue

import "sync"

// Queue is an unbounded queue of T. The zero value is not usable; call New.
// Beware! You almost certainly want T to be a small value type or a pointer.
type Queue[T any] struct {
	in        chan T
	out       chan T
	queue     []T
	closeOnce sync.Once
}

// New creates a Queue and starts the goroutine that moves items from the
// input to the output.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		in:    make(chan T),
		out:   make(chan T),
		queue: make([]T, 0),
	}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	for {
		if len(q.queue) == 0 {
			val, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			q.queue = append(q.queue, val)
			continue
		}
		select {
		case q.out <- q.queue[0]:
			var zero T
			q.queue[0] = zero
			q.queue = q.queue[1:]
		case val, ok := <-q.in:
			if !ok {
				// Drain what is queued, then close the output.
				for _, item := range q.queue {
					q.out <- item
				}
				close(q.out)
				return
			}
			q.queue = append(q.queue, val)
		}
	}
}

// Push enqueues v. It must not be called after Close.
func (q *Queue[T]) Push(v T) {
	q.in <- v
}

// Close stops accepting items. Items already pushed are still delivered on Out,
// after which Out is closed. Close may be called more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.in) })
}

// Out returns the channel on which queued items are delivered in FIFO order.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}
