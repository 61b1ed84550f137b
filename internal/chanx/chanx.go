// Package chanx provides the unbounded queue used for every hand-off between
// the editor's goroutines.
package chanx

import "sync"

// Unbounded is a multi-producer, multi-consumer FIFO queue. Send never blocks
// and values are moved to the receiver in the order they were sent.
type Unbounded[T any] struct {
	mu     sync.Mutex
	buf    []T
	closed bool
	ready  chan struct{}
}

// New creates an empty queue.
func New[T any]() *Unbounded[T] {
	return &Unbounded[T]{ready: make(chan struct{}, 1)}
}

// Send enqueues v. It reports false if the queue has been closed, in which
// case v is dropped.
func (u *Unbounded[T]) Send(v T) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return false
	}
	u.buf = append(u.buf, v)
	u.signal()
	return true
}

// TryRecv dequeues the oldest value without blocking.
func (u *Unbounded[T]) TryRecv() (T, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pop()
}

// Recv blocks until a value is available. It reports false once the queue is
// closed and fully drained.
func (u *Unbounded[T]) Recv() (T, bool) {
	for {
		u.mu.Lock()
		if v, ok := u.pop(); ok {
			u.mu.Unlock()
			return v, true
		}
		if u.closed {
			u.mu.Unlock()
			var zero T
			return zero, false
		}
		u.mu.Unlock()
		<-u.ready
	}
}

// Drain dequeues every value currently buffered without blocking.
func (u *Unbounded[T]) Drain() []T {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := u.buf
	u.buf = nil
	return out
}

// Len returns the number of buffered values.
func (u *Unbounded[T]) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.buf)
}

// Close stops the queue from accepting values. Buffered values can still be
// received. Close is idempotent.
func (u *Unbounded[T]) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return
	}
	u.closed = true
	close(u.ready)
}

// Closed reports whether Close has been called.
func (u *Unbounded[T]) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

// pop must be called with mu held.
func (u *Unbounded[T]) pop() (T, bool) {
	var zero T
	if len(u.buf) == 0 {
		return zero, false
	}
	v := u.buf[0]
	u.buf[0] = zero
	u.buf = u.buf[1:]
	if len(u.buf) > 0 {
		u.signal()
	}
	return v, true
}

// signal must be called with mu held.
func (u *Unbounded[T]) signal() {
	if u.closed {
		return
	}
	select {
	case u.ready <- struct{}{}:
	default:
	}
}
