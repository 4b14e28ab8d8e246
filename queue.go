package funnel

import (
	"sync"
	"sync/atomic"
)

// Queue is the shared conduit between record producers and the collector.
// Any number of goroutines may Send concurrently; exactly one consumer (the
// collector loop) calls Receive. Records from a single producer are delivered
// in submission order.
//
// A Queue is unbounded by default. With a positive capacity, Send never
// blocks: a record arriving at a full queue is dropped and counted (the
// collector reports the total on shutdown). Backpressure was deliberately
// not chosen so that logging can never stall a producer's workload.
type Queue struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	items    []Record
	capacity int // <= 0 means unbounded
	closed   bool
	dropped  atomic.Uint64
}

// NewQueue creates a record queue. capacity <= 0 means unbounded.
func NewQueue(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	q.notEmpty.L = &q.mu
	return q
}

// Send enqueues a record. It returns ErrQueueClosed after Close; it returns
// nil when a bounded queue is full, silently dropping the record into the
// drop counter. Send never blocks.
func (q *Queue) Send(r Record) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		q.dropped.Add(1)
		return nil
	}
	q.items = append(q.items, r)
	q.mu.Unlock()
	q.notEmpty.Signal()
	return nil
}

// Receive blocks until a record is available or the queue is closed and
// drained. The second return value is false only in the latter case.
func (q *Queue) Receive() (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return Record{}, false
	}
	r := q.items[0]
	q.items[0] = Record{} // release references held by the slot
	q.items = q.items[1:]
	return r, true
}

// Close marks the queue closed. Subsequent Send calls fail with
// ErrQueueClosed; records already enqueued remain available to Receive.
// Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()
	if !alreadyClosed {
		q.notEmpty.Broadcast()
	}
}

// Len returns the number of records currently buffered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of records discarded due to a full bounded
// queue since construction.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
