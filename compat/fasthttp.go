// Package compat provides adapters that let third-party frameworks log
// through a funnel channel.
package compat

import (
	"fmt"
	"strings"

	"funnel"
)

// FastHTTPAdapter wraps a funnel.Channel to implement fasthttp's Logger
// interface.
type FastHTTPAdapter struct {
	ch            *funnel.Channel
	defaultLevel  funnel.Level
	levelDetector func(string) funnel.Level // detects log level from message content
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter.
func NewFastHTTPAdapter(ch *funnel.Channel, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		ch:            ch,
		defaultLevel:  funnel.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior.
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls.
func WithDefaultLevel(level funnel.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content.
func WithLevelDetector(detector func(string) funnel.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface.
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected := a.levelDetector(msg); detected != 0 {
			level = detected
		}
	}

	a.ch.Log(level, msg, "source", "fasthttp")
}

// DetectLogLevel attempts to detect log level from message content.
func DetectLogLevel(msg string) funnel.Level {
	msgLower := strings.ToLower(msg)

	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return funnel.LevelError
	}

	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "warning") ||
		strings.Contains(msgLower, "deprecated") {
		return funnel.LevelWarn
	}

	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return funnel.LevelDebug
	}

	return funnel.LevelInfo
}
