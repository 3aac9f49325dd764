package ingest

import "sync/atomic"

// RingBuffer is a single-producer single-consumer queue between the session
// handlers and the engine loop. When full, Enqueue fails and the event is
// dropped rather than blocking the gateway handler.
type RingBuffer struct {
	buffer []Event
	mask   uint32
	head   uint32
	tail   uint32
}

func NewRingBuffer(size uint32) *RingBuffer {
	if size&(size-1) != 0 {
		size = nextPowerOf2(size)
	}

	return &RingBuffer{
		buffer: make([]Event, size),
		mask:   size - 1,
	}
}

func (rb *RingBuffer) Enqueue(event Event) bool {
	head := atomic.LoadUint32(&rb.head)
	tail := atomic.LoadUint32(&rb.tail)

	nextHead := (head + 1) & rb.mask
	if nextHead == tail {
		return false
	}

	rb.buffer[head] = event
	atomic.StoreUint32(&rb.head, nextHead)
	return true
}

func (rb *RingBuffer) Dequeue() (Event, bool) {
	head := atomic.LoadUint32(&rb.head)
	tail := atomic.LoadUint32(&rb.tail)

	if tail == head {
		return Event{}, false
	}

	event := rb.buffer[tail]
	atomic.StoreUint32(&rb.tail, (tail+1)&rb.mask)
	return event, true
}

func (rb *RingBuffer) IsEmpty() bool {
	return atomic.LoadUint32(&rb.head) == atomic.LoadUint32(&rb.tail)
}

func (rb *RingBuffer) Size() uint32 {
	head := atomic.LoadUint32(&rb.head)
	tail := atomic.LoadUint32(&rb.tail)

	if head >= tail {
		return head - tail
	}
	return (rb.mask + 1) - (tail - head)
}

func (rb *RingBuffer) Capacity() uint32 {
	return rb.mask + 1
}

func nextPowerOf2(n uint32) uint32 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
