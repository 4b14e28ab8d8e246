package funnel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector states. Transitions are one-way; Stopped is terminal.
const (
	collectorNotStarted int32 = iota
	collectorRunning
	collectorDraining
	collectorStopped
)

// dispatcher performs the severity-filtered fan-out of one record into the
// configured sinks. A single mutex serializes the collector loop against
// synchronous dispatch from standalone/owner emits, preserving the
// single-writer discipline per sink.
type dispatcher struct {
	mu       sync.Mutex
	handlers []*handler
	closed   bool
}

func newDispatcher(handlers []*handler) *dispatcher {
	return &dispatcher{handlers: handlers}
}

// needsSource reports whether any handler's template references source
// location keys.
func (d *dispatcher) needsSource() bool {
	for _, h := range d.handlers {
		if h.format.needsSource {
			return true
		}
	}
	return false
}

// dispatch writes one record to every handler whose severity floor it
// passes. A failing sink is reported to the fallback stream and skipped;
// one faulty sink never silences the others.
func (d *dispatcher) dispatch(rec Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for _, h := range d.handlers {
		if rec.Level < h.level {
			continue
		}
		line := h.format.render(rec)
		if err := h.out.write(line, rec.Level); err != nil {
			internalLog("failed to write to sink '%s': %v", h.name, err)
		}
	}
}

// closeAll closes every sink exactly once. Records dispatched afterwards
// are dropped.
func (d *dispatcher) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, h := range d.handlers {
		if err := h.out.close(); err != nil {
			internalLog("failed to close sink '%s': %v", h.name, err)
		}
	}
}

// collector drains the record queue on a dedicated goroutine and is, apart
// from synchronous owner/standalone emits serialized through the same
// dispatcher, the only component performing sink I/O.
type collector struct {
	queue *Queue
	disp  *dispatcher
	state atomic.Int32
	done  chan struct{}
}

func newCollector(q *Queue, d *dispatcher) *collector {
	return &collector{
		queue: q,
		disp:  d,
		done:  make(chan struct{}),
	}
}

// start launches the loop. Records cannot be lost before start because
// the queue buffers everything sent since construction.
func (c *collector) start() {
	if c.state.CompareAndSwap(collectorNotStarted, collectorRunning) {
		go c.run()
	}
}

func (c *collector) run() {
	defer close(c.done)

	for {
		rec, ok := c.queue.Receive()
		if !ok {
			break // closed and fully drained
		}
		c.disp.dispatch(rec)
	}

	if dropped := c.queue.Dropped(); dropped > 0 {
		internalLog("warning - %d records were dropped on a full queue", dropped)
	}
	c.disp.closeAll()
	c.state.Store(collectorStopped)
}

// drain closes the queue and waits for the loop to finish writing every
// record sent before the close. Requesting a drain on a stopped collector
// is a no-op, not an error.
func (c *collector) drain(timeout time.Duration) error {
	if !c.state.CompareAndSwap(collectorRunning, collectorDraining) {
		return nil
	}
	c.queue.Close()

	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return fmtErrorf("collector did not drain within timeout (%v)", timeout)
	}
}
