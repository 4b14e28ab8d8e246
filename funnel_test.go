package funnel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileConfig writes a config with a single file handler and returns the
// config path and the log path.
func fileConfig(t *testing.T, rootLevel string, propagate bool) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	cfgPath := writeConfig(t, "logging.yaml", fmt.Sprintf(`
root:
  level: %s
  propagate: %t
handlers:
  app:
    type: file
    level: DEBUG
    filename: %s
    formatter:
      format: "%%(name)s - %%(levelname)s - %%(message)s"
`, rootLevel, propagate, logPath))
	return cfgPath, logPath
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestStandaloneHierarchyFiltering(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "INFO", true)

	f, err := New(cfgPath)
	require.NoError(t, err)
	require.Equal(t, ModeStandalone, f.Mode())
	assert.Nil(t, f.Queue(), "standalone mode has no queue")

	f.Channel("app").Info("parent ready")

	sub := f.Channel("app.sub")
	sub.Debug("below threshold") // inherits INFO from the root
	sub.Info("visible")

	require.NoError(t, f.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, 2, "suppressed records must not reach any sink")
	assert.Equal(t, "app - INFO - parent ready", lines[0])
	assert.Equal(t, "app.sub - INFO - visible", lines[1])
}

func TestChannelLevelInheritance(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "WARNING", true)

	f, err := New(cfgPath)
	require.NoError(t, err)

	// Explicit DEBUG on the parent is inherited by the child.
	f.Channel("svc", LevelDebug)
	child := f.Channel("svc.worker")
	child.Debug("inherited debug")

	// Sibling without an ancestor override stays at the root's WARNING.
	other := f.Channel("other")
	other.Info("filtered")
	other.Warn("passes")

	require.NoError(t, f.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, 2)
	assert.Equal(t, "svc.worker - DEBUG - inherited debug", lines[0])
	assert.Equal(t, "other - WARNING - passes", lines[1])
}

func TestChannelNoPropagateFallsBackToRoot(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "WARNING", false)

	f, err := New(cfgPath)
	require.NoError(t, err)

	f.Channel("svc", LevelDebug)
	child := f.Channel("svc.worker")
	child.Debug("not inherited") // propagation off, root WARNING applies
	child.Error("passes")

	require.NoError(t, f.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "svc.worker - ERROR - passes", lines[0])
}

func TestRootChannel(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "INFO", true)

	f, err := New(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "", f.Root().Name())

	f.Root().Info("from the top")
	require.NoError(t, f.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "root - INFO - from the top", lines[0])
}

func TestStandaloneIgnoresSuppliedQueue(t *testing.T) {
	cfgPath, _ := fileConfig(t, "INFO", true)

	f, err := New(cfgPath, WithQueue(NewQueue(0)))
	require.NoError(t, err)
	defer f.Stop()

	assert.Equal(t, ModeStandalone, f.Mode())
	assert.Nil(t, f.Queue())
}

func TestOwnerWorkerRoundtrip(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "INFO", true)

	owner, err := New(cfgPath, WithMultiprocess())
	require.NoError(t, err)
	require.Equal(t, ModeOwner, owner.Mode())
	require.NotNil(t, owner.Queue())

	worker, err := FromQueue(cfgPath, owner.Queue())
	require.NoError(t, err)
	require.Equal(t, ModeWorker, worker.Mode())

	ch := worker.Channel("worker")
	const n = 10
	for i := 0; i < n; i++ {
		ch.Info("job done", "item", i)
	}
	require.NoError(t, worker.Stop(), "worker Stop never touches the shared queue")
	require.NoError(t, owner.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, n, "owner shutdown must flush every record sent before it")
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("worker - INFO - job done item=%d", i), line)
	}
}

func TestOwnerEmitsSynchronouslyToo(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "INFO", true)

	owner, err := New(cfgPath, WithMultiprocess())
	require.NoError(t, err)

	owner.Channel("main").Info("from the owner itself")
	require.NoError(t, owner.Stop())

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "main - INFO - from the owner itself", lines[0])
}

func TestFromQueueRequiresQueue(t *testing.T) {
	cfgPath, _ := fileConfig(t, "INFO", true)

	_, err := FromQueue(cfgPath, nil)
	require.Error(t, err)
}

func TestStopIdempotent(t *testing.T) {
	cfgPath, _ := fileConfig(t, "INFO", true)

	for _, opts := range [][]Option{
		nil,
		{WithMultiprocess()},
	} {
		f, err := New(cfgPath, opts...)
		require.NoError(t, err)
		require.NoError(t, f.Stop())
		require.NoError(t, f.Stop())
	}
}

func TestWorkerSendAfterOwnerStop(t *testing.T) {
	cfgPath, _ := fileConfig(t, "INFO", true)

	owner, err := New(cfgPath, WithMultiprocess())
	require.NoError(t, err)
	worker, err := FromQueue(cfgPath, owner.Queue())
	require.NoError(t, err)

	require.NoError(t, owner.Stop())

	// Emitting after the owner shut down must not panic or error; the
	// record is counted as lost.
	worker.Channel("late").Info("nobody is listening")
	assert.Equal(t, uint64(1), worker.Dropped())
}

func TestBuildErrorIsolation(t *testing.T) {
	dir := t.TempDir()
	goodPath := filepath.Join(dir, "good.log")
	badPath := filepath.Join(dir, "missing", "bad.log")
	cfgPath := writeConfig(t, "logging.yaml", fmt.Sprintf(`
root:
  level: INFO
handlers:
  good:
    type: file
    filename: %s
    formatter:
      format: "%%(message)s"
  bad:
    type: file
    filename: %s
`, goodPath, badPath))

	f, err := New(cfgPath)
	require.NoError(t, err, "one broken sink must not fail construction")

	require.Len(t, f.BuildErrors(), 1)
	var se *SinkError
	require.True(t, errors.As(f.BuildErrors()[0], &se))
	assert.Equal(t, "bad", se.Name)
	assert.Equal(t, badPath, se.Path)

	f.Channel("app").Info("still works")
	require.NoError(t, f.Stop())

	lines := readLines(t, goodPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "still works", lines[0])
}

func TestNewFailsWhenNoHandlerUsable(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, "logging.yaml", fmt.Sprintf(`
handlers:
  only:
    type: file
    filename: %s
`, filepath.Join(dir, "missing", "only.log")))

	_, err := New(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable handlers")
}

func TestNewConfigErrorsAreFatal(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestUsingStopsOnAllPaths(t *testing.T) {
	cfgPath, logPath := fileConfig(t, "INFO", true)

	sentinel := errors.New("workload failed")
	err := Using(cfgPath, func(f *Funnel) error {
		f.Channel("app").Info("before failure")
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// Stop ran despite the error: the sink was flushed and closed.
	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "app - INFO - before failure", lines[0])

	require.NoError(t, Using(cfgPath, func(f *Funnel) error {
		f.Channel("app").Info("happy path")
		return nil
	}))
}

func TestWorkerCapturesSourceLocation(t *testing.T) {
	cfgPath, _ := fileConfig(t, "INFO", true)

	// A bare queue stands in for the owner so the record can be inspected
	// before any collector consumes it.
	q := NewQueue(0)
	worker, err := FromQueue(cfgPath, q)
	require.NoError(t, err)

	worker.Channel("w").Info("locate me")

	rec, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "funnel_test.go", rec.File)
	assert.NotZero(t, rec.Line)
}

func TestJSONConfigEndToEnd(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	cfgPath := writeConfig(t, "logging.json", fmt.Sprintf(`{
  "root": {"level": "INFO", "propagate": true},
  "handlers": {
    "app": {
      "type": "file",
      "filename": %q,
      "formatter": {"format": "%%(levelname)s %%(message)s"}
    }
  }
}`, logPath))

	require.NoError(t, Using(cfgPath, func(f *Funnel) error {
		f.Channel("app").Warn("json config works")
		return nil
	}))

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARNING json config works", lines[0])
}
