package funnel

import (
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
)

// Channel is a named logging endpoint. Channels are organized in a dotted
// hierarchy under a root channel; each has an optional severity threshold of
// its own, inherited from ancestors when unset (see registry.effectiveLevel).
//
// All methods are safe for concurrent use. Emitting never returns an error
// and never panics: sink and queue failures are absorbed and reported on the
// fallback stream so logging cannot crash the caller's workload.
type Channel struct {
	name  string
	level atomic.Int64 // 0 = unset, inherit
	reg   *registry
}

// Name returns the channel's dotted name; "" is the root channel.
func (c *Channel) Name() string {
	return c.name
}

// SetLevel overrides the channel's severity threshold.
func (c *Channel) SetLevel(level Level) {
	c.level.Store(int64(level))
}

// Debug logs a message at debug level.
func (c *Channel) Debug(msg string, args ...any) {
	c.log(LevelDebug, msg, args)
}

// Info logs a message at info level.
func (c *Channel) Info(msg string, args ...any) {
	c.log(LevelInfo, msg, args)
}

// Warn logs a message at warning level.
func (c *Channel) Warn(msg string, args ...any) {
	c.log(LevelWarn, msg, args)
}

// Error logs a message at error level.
func (c *Channel) Error(msg string, args ...any) {
	c.log(LevelError, msg, args)
}

// Critical logs a message at critical level.
func (c *Channel) Critical(msg string, args ...any) {
	c.log(LevelCritical, msg, args)
}

// Log logs a message at an explicit level.
func (c *Channel) Log(level Level, msg string, args ...any) {
	c.log(level, msg, args)
}

func (c *Channel) log(level Level, msg string, args []any) {
	if level < c.reg.effectiveLevel(c.name) {
		return
	}

	rec := Record{
		Time:    time.Now(),
		Channel: c.name,
		Level:   level,
		Message: msg,
		Args:    args,
	}
	if c.reg.captureSource {
		// Caller(2): log <- Debug/Info/.../Log <- emit site
		if _, file, line, ok := runtime.Caller(2); ok {
			rec.File = filepath.Base(file)
			rec.Line = line
		}
	}
	c.reg.emit(rec)
}
