package funnel

import (
	"strings"
	"sync"
)

// registry owns the named channel hierarchy for one facade instance. It is
// explicit state passed to whatever needs channel lookup; there is no
// process-global logger table.
type registry struct {
	mu        sync.RWMutex
	channels  map[string]*Channel
	rootLevel Level
	propagate bool

	// emit is the mode-resolved delivery function set once at construction:
	// direct dispatch in standalone/owner modes, queue send in worker mode.
	emit func(Record)
	// captureSource is true when some format template needs %(filename)s or
	// %(lineno)d, or always in worker mode.
	captureSource bool
}

func newRegistry(rootLevel Level, propagate bool) *registry {
	return &registry{
		channels:  make(map[string]*Channel),
		rootLevel: rootLevel,
		propagate: propagate,
	}
}

// channel returns the named channel, creating it on first use. level 0
// leaves the channel's own threshold unset so it inherits per the
// propagation rules. name "" is the root channel.
func (r *registry) channel(name string, level Level) *Channel {
	r.mu.RLock()
	ch, ok := r.channels[name]
	r.mu.RUnlock()
	if ok {
		if level != 0 {
			ch.SetLevel(level)
		}
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[name]; ok {
		if level != 0 {
			ch.SetLevel(level)
		}
		return ch
	}
	ch = &Channel{name: name, reg: r}
	if level != 0 {
		ch.level.Store(int64(level))
	}
	r.channels[name] = ch
	return ch
}

// effectiveLevel resolves the severity threshold for a channel name. A
// channel with an explicit level uses it. With propagation enabled, an
// unset channel inherits from the nearest dotted ancestor that has one;
// otherwise it falls straight back to the root level.
func (r *registry) effectiveLevel(name string) Level {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for {
		if ch, ok := r.channels[name]; ok {
			if lvl := Level(ch.level.Load()); lvl != 0 {
				return lvl
			}
		}
		if name == "" || !r.propagate {
			break
		}
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			name = name[:dot]
		} else {
			name = "" // root is the final ancestor
		}
	}
	return r.rootLevel
}
