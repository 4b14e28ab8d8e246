package funnel

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrQueueClosed is returned by Queue.Send after the queue has been closed.
// It is an expected condition during shutdown, not a failure.
var ErrQueueClosed = errors.New("funnel: queue closed")

// SinkError reports a sink that could not be constructed. Other sinks from
// the same configuration are still built; see Funnel.BuildErrors.
type SinkError struct {
	Name string // handler name from the configuration
	Path string // target path, empty for stream sinks
	Err  error
}

func (e *SinkError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("funnel: sink '%s' (%s): %v", e.Name, e.Path, e.Err)
	}
	return fmt.Sprintf("funnel: sink '%s': %v", e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// fmtErrorf wrapper, ensures the consistent "funnel: " prefix
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "funnel: ") {
		format = "funnel: " + format
	}
	return fmt.Errorf(format, args...)
}

// internalLog writes internal diagnostics to the fallback stream (stderr).
// Sink write failures and drop reports end up here; they are never raised
// to emit callers.
func internalLog(format string, args ...any) {
	if !strings.HasPrefix(format, "funnel: ") {
		format = "funnel: " + format
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
