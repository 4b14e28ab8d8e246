package funnel

import (
	"errors"
	"sync/atomic"
	"time"
)

// Funnel is the public facade. Construct one per process with New (or
// FromQueue in worker processes), acquire channels through Channel, and
// call Stop before exit. The resolved operating mode is immutable for the
// facade's lifetime.
type Funnel struct {
	mode        Mode
	cfg         *Config
	reg         *registry
	disp        *dispatcher // nil in worker mode
	queue       *Queue      // nil in standalone mode
	coll        *collector  // owner mode only
	buildErrs   []error
	stopTimeout time.Duration
	stopped     atomic.Bool
	lostSends   atomic.Uint64 // worker sends after the owner closed the queue
}

type options struct {
	multiprocess bool
	capacity     int
	queue        *Queue
	stopTimeout  time.Duration
}

// Option customizes construction.
type Option func(*options)

// WithMultiprocess requests the multi-producer topology. Without an external
// queue this process becomes the aggregation owner; with one (WithQueue) it
// becomes a worker.
func WithMultiprocess() Option {
	return func(o *options) {
		o.multiprocess = true
	}
}

// WithQueueCapacity bounds the record queue. Zero or negative means
// unbounded (the default). See Queue.Send for the overflow policy.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithQueue supplies an externally created record queue. Combined with
// WithMultiprocess this selects worker mode. Without WithMultiprocess the
// queue is ignored, not rejected.
func WithQueue(q *Queue) Option {
	return func(o *options) {
		o.queue = q
	}
}

// WithStopTimeout bounds how long Stop waits for the collector to drain.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		o.stopTimeout = d
	}
}

// New constructs a facade from a configuration file. Config load, parse,
// and validation failures are fatal. Individual sink construction failures
// are not: the failed sink is skipped and reported (see BuildErrors); New
// fails only when handlers were configured and none could be built.
func New(configPath string, opts ...Option) (*Funnel, error) {
	o := options{stopTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	rootLevel, _ := ParseLevel(cfg.Root.Level) // validated by LoadConfig

	f := &Funnel{
		mode:        resolveMode(o.multiprocess, o.queue),
		cfg:         cfg,
		reg:         newRegistry(rootLevel, cfg.Root.Propagate),
		stopTimeout: o.stopTimeout,
	}

	if f.mode == ModeWorker {
		// Workers hold no sinks and no templates; every record goes to the
		// shared queue and formatting happens on the owner side. Source
		// location is always captured because the owner's templates are
		// unknown here.
		f.queue = o.queue
		f.reg.captureSource = true
		f.reg.emit = f.sendToQueue
		return f, nil
	}

	handlers, buildErrs := buildHandlers(cfg)
	f.buildErrs = buildErrs
	for _, e := range buildErrs {
		internalLog("%v", e)
	}
	if len(handlers) == 0 && len(cfg.Handlers) > 0 {
		return nil, fmtErrorf("no usable handlers could be built: %w", errors.Join(buildErrs...))
	}

	f.disp = newDispatcher(handlers)
	f.reg.captureSource = f.disp.needsSource()
	f.reg.emit = f.disp.dispatch

	if f.mode == ModeOwner {
		f.queue = NewQueue(o.capacity)
		f.coll = newCollector(f.queue, f.disp)
		f.coll.start()
	}
	return f, nil
}

// FromQueue is the worker-process constructor: it requires the queue handle
// obtained from the owner's Queue() and forces worker mode. The config file
// is still loaded for channel levels, but no sinks are constructed.
func FromQueue(configPath string, q *Queue) (*Funnel, error) {
	if q == nil {
		return nil, fmtErrorf("worker mode requires a record queue")
	}
	return New(configPath, WithMultiprocess(), WithQueue(q))
}

// Using is the scoped-acquisition form: it constructs a facade, runs fn,
// and calls Stop on every exit path.
func Using(configPath string, fn func(*Funnel) error, opts ...Option) (err error) {
	f, err := New(configPath, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := f.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	err = fn(f)
	return err
}

// buildHandlers constructs every configured sink, isolating per-sink
// failures so one bad path cannot prevent the others from working.
func buildHandlers(cfg *Config) ([]*handler, []error) {
	var handlers []*handler
	var errs []error
	for name, hc := range cfg.Handlers {
		h, err := buildSink(name, hc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handlers = append(handlers, h)
	}
	return handlers, errs
}

// Mode returns the operating mode resolved at construction.
func (f *Funnel) Mode() Mode {
	return f.mode
}

// Channel returns the named channel handle, creating it on first use. An
// optional level overrides the channel's own threshold; otherwise it
// inherits per the root propagation rules. Name "" is the root channel.
func (f *Funnel) Channel(name string, level ...Level) *Channel {
	var lvl Level
	if len(level) > 0 {
		lvl = level[0]
	}
	return f.reg.channel(name, lvl)
}

// Root returns the root channel.
func (f *Funnel) Root() *Channel {
	return f.Channel("")
}

// Queue returns the shared record queue for handing to worker processes.
// Only meaningful in owner mode; nil in standalone mode.
func (f *Funnel) Queue() *Queue {
	return f.queue
}

// BuildErrors returns the per-sink construction failures absorbed by New.
func (f *Funnel) BuildErrors() []error {
	return f.buildErrs
}

// Dropped returns the number of records lost to queue overflow or to sends
// after shutdown.
func (f *Funnel) Dropped() uint64 {
	var n uint64
	if f.queue != nil {
		n += f.queue.Dropped()
	}
	return n + f.lostSends.Load()
}

// Stop shuts the facade down: in owner mode it closes the queue, waits for
// the collector to drain every previously sent record, and closes the
// sinks; in standalone mode it closes the sinks directly. Worker facades do
// not own the queue or any sinks, so their Stop is a no-op. Idempotent on
// all paths.
func (f *Funnel) Stop() error {
	if !f.stopped.CompareAndSwap(false, true) {
		return nil
	}
	switch f.mode {
	case ModeWorker:
		return nil
	case ModeOwner:
		return f.coll.drain(f.stopTimeout)
	default:
		f.disp.closeAll()
		return nil
	}
}

// sendToQueue is the worker-mode emit path. A send after the owner has shut
// down is an expected, recoverable condition: the record is counted and
// discarded, never raised to the caller.
func (f *Funnel) sendToQueue(rec Record) {
	if err := f.queue.Send(rec); err != nil {
		f.lostSends.Add(1)
	}
}
