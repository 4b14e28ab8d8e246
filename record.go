package funnel

import "time"

// Record is a single log entry. It is created at the emit site, never
// mutated, and consumed exactly once by the dispatcher (or discarded on
// bounded-queue overflow).
type Record struct {
	Time    time.Time
	Channel string // dotted channel name, "" for root
	Level   Level
	Message string
	Args    []any // optional key/value pairs appended after the message

	// Source location. Captured only when a configured format template
	// references %(filename)s or %(lineno)d, or in worker mode where the
	// owner's templates are unknown.
	File string
	Line int
}
