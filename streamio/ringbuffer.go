package streamio

import (
	"errors"
	"sync"

	"github.com/cwsl/protodetect/protocol"
)

// ErrWouldBlock is the error for an operation that cannot proceed without
// blocking because the queue is full or empty. No RingBuffer method returns
// it: TryWrite reports a full queue by returning fewer than len(src).
var ErrWouldBlock = errors.New("streamio: would block")

// RingBuffer is a bounded single-producer/single-consumer sample queue. It
// is the minimal concrete stand-in for the lock-free SPSC ring buffers a
// full stream-graph runtime would own; cmd/protodetectd needs something to
// drive the blocks' Input/Output views over a continuous source, so this
// exists to wire them together.
//
// RingBuffer is safe for exactly one writer goroutine and one reader
// goroutine calling concurrently with each other (not with themselves).
type RingBuffer struct {
	mu       sync.Mutex
	data     []protocol.Sample
	head     int // next read position
	tail     int // next write position
	size     int // number of valid samples currently queued
	finished bool
}

// NewRingBuffer allocates a ring buffer with the given sample capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]protocol.Sample, capacity)}
}

// TryWrite copies as many samples from src as fit without blocking and
// returns the count written. It never partially blocks: what does not fit
// is left for the next call.
func (r *RingBuffer) TryWrite(src []protocol.Sample) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	free := len(r.data) - r.size
	n := min(free, len(src))
	for i := 0; i < n; i++ {
		r.data[r.tail] = src[i]
		r.tail = (r.tail + 1) % len(r.data)
	}
	r.size += n
	return n
}

// SetFinished marks the buffer as having no further writes coming, once
// drained. Readers observe this via Finished().
func (r *RingBuffer) SetFinished() {
	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
}

// Finished reports whether SetFinished has been called and the buffer has
// been fully drained - i.e. whether an Input view built from this buffer
// should report Finished: true.
func (r *RingBuffer) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished && r.size == 0
}

// Peek returns a contiguous copy of up to maxLen currently queued samples
// without consuming them, for building an Input view.
func (r *RingBuffer) Peek(maxLen int) []protocol.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(maxLen, r.size)
	out := make([]protocol.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Consume discards the first n queued samples, as a block's work cycle
// does after routing them.
func (r *RingBuffer) Consume(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.size {
		n = r.size
	}
	r.head = (r.head + n) % len(r.data)
	r.size -= n
}

// Len reports the number of samples currently queued.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
