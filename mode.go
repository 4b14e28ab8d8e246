package funnel

// Mode is the resolved operating topology of a Funnel instance. It is fixed
// at construction time; every component dispatches on this tag.
type Mode int32

const (
	// ModeStandalone runs without a queue; emits dispatch synchronously to
	// the sinks on the caller's goroutine.
	ModeStandalone Mode = iota
	// ModeOwner creates the record queue and runs the collector; sinks are
	// live only in this mode and in ModeStandalone.
	ModeOwner
	// ModeWorker forwards every record to an externally supplied queue and
	// constructs no sinks of its own.
	ModeWorker
)

func (m Mode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeOwner:
		return "owner"
	case ModeWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// resolveMode maps the construction inputs to exactly one operating mode.
// Precedence: multiprocess=false always yields ModeStandalone, and a queue
// supplied in that case is ignored rather than rejected. With multiprocess
// requested, the presence of a supplied queue decides owner vs worker.
func resolveMode(multiprocess bool, supplied *Queue) Mode {
	if !multiprocess {
		return ModeStandalone
	}
	if supplied == nil {
		return ModeOwner
	}
	return ModeWorker
}
