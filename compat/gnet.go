package compat

import (
	"fmt"
	"os"

	"funnel"
)

// GnetAdapter wraps a funnel.Channel to implement gnet's logging.Logger
// interface.
type GnetAdapter struct {
	ch           *funnel.Channel
	fatalHandler func(msg string) // customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter.
func NewGnetAdapter(ch *funnel.Channel, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		ch: ch,
		fatalHandler: func(msg string) {
			os.Exit(1) // default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior.
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler.
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting.
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.ch.Debug(fmt.Sprintf(format, args...), "source", "gnet")
}

// Infof logs at info level with printf-style formatting.
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.ch.Info(fmt.Sprintf(format, args...), "source", "gnet")
}

// Warnf logs at warn level with printf-style formatting.
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.ch.Warn(fmt.Sprintf(format, args...), "source", "gnet")
}

// Errorf logs at error level with printf-style formatting.
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.ch.Error(fmt.Sprintf(format, args...), "source", "gnet")
}

// Fatalf logs at critical level and triggers the fatal handler.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.ch.Critical(msg, "source", "gnet", "fatal", true)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
