package funnel

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records everything written to it, optionally failing writes to
// exercise fault isolation.
type captureSink struct {
	mu         sync.Mutex
	lines      []string
	failWrites bool
	closeCount int
}

func (s *captureSink) write(line []byte, _ Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("write refused")
	}
	s.lines = append(s.lines, string(line))
	return nil
}

func (s *captureSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

func (s *captureSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *captureSink) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

func captureHandler(t *testing.T, level Level) (*handler, *captureSink) {
	t.Helper()
	out := &captureSink{}
	return &handler{
		name:   "capture",
		level:  level,
		format: mustFormat(t, "%(message)s", ""),
		out:    out,
	}, out
}

func TestCollectorDrainWritesEveryRecord(t *testing.T) {
	h, out := captureHandler(t, LevelDebug)
	q := NewQueue(0)
	c := newCollector(q, newDispatcher([]*handler{h}))
	c.start()

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, q.Send(Record{Level: LevelInfo, Message: fmt.Sprintf("msg-%04d", i)}))
	}
	require.NoError(t, c.drain(5*time.Second))

	lines := out.snapshot()
	require.Len(t, lines, n, "every record sent before shutdown must be written")
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("msg-%04d\n", i), line)
	}
	assert.Equal(t, 1, out.closes(), "sinks close exactly once after the drain")
	assert.Equal(t, collectorStopped, c.state.Load())
}

func TestCollectorDrainIdempotent(t *testing.T) {
	h, out := captureHandler(t, LevelDebug)
	q := NewQueue(0)
	c := newCollector(q, newDispatcher([]*handler{h}))
	c.start()

	require.NoError(t, c.drain(time.Second))
	require.NoError(t, c.drain(time.Second), "drain on a stopped collector is a no-op")
	assert.Equal(t, 1, out.closes())
}

func TestCollectorStartIsOneShot(t *testing.T) {
	h, _ := captureHandler(t, LevelDebug)
	q := NewQueue(0)
	c := newCollector(q, newDispatcher([]*handler{h}))
	c.start()
	c.start() // second start must not spawn a second loop

	require.NoError(t, q.Send(Record{Level: LevelInfo, Message: "once"}))
	require.NoError(t, c.drain(time.Second))
}

func TestDispatcherLevelFilter(t *testing.T) {
	h, out := captureHandler(t, LevelWarn)
	d := newDispatcher([]*handler{h})

	d.dispatch(Record{Level: LevelInfo, Message: "quiet"})
	d.dispatch(Record{Level: LevelWarn, Message: "loud"})
	d.dispatch(Record{Level: LevelCritical, Message: "louder"})

	assert.Equal(t, []string{"loud\n", "louder\n"}, out.snapshot())
}

func TestDispatcherFaultIsolation(t *testing.T) {
	broken := &captureSink{failWrites: true}
	h1 := &handler{name: "broken", level: LevelDebug, format: mustFormat(t, "%(message)s", ""), out: broken}
	h2, out := captureHandler(t, LevelDebug)
	d := newDispatcher([]*handler{h1, h2})

	d.dispatch(Record{Level: LevelInfo, Message: "survives"})

	assert.Equal(t, []string{"survives\n"}, out.snapshot(),
		"a failing sink must not silence the others")
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	h, out := captureHandler(t, LevelDebug)
	d := newDispatcher([]*handler{h})

	d.closeAll()
	d.closeAll() // idempotent
	d.dispatch(Record{Level: LevelInfo, Message: "late"})

	assert.Empty(t, out.snapshot())
	assert.Equal(t, 1, out.closes())
}

func TestDispatcherNeedsSource(t *testing.T) {
	plain, _ := captureHandler(t, LevelDebug)
	assert.False(t, newDispatcher([]*handler{plain}).needsSource())

	src := &handler{
		name:   "src",
		level:  LevelDebug,
		format: mustFormat(t, "%(filename)s:%(lineno)d %(message)s", ""),
		out:    &captureSink{},
	}
	assert.True(t, newDispatcher([]*handler{plain, src}).needsSource())
}
