// Package lifecycle tracks the process phase reported by the health endpoint.
package lifecycle

import "sync/atomic"

// Phase is a stage of the service process.
type Phase int32

const (
	// Starting covers startup work such as cache warming.
	Starting Phase = iota
	// Serving means the service accepts traffic.
	Serving
	// Draining is set when SIGTERM/SIGINT is received.
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "healthy"
	case Draining:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// State holds the current phase. The zero value is Starting and safe for concurrent use.
type State struct {
	phase atomic.Int32
}

// Set moves the process to p. Draining is terminal: later calls are ignored.
func (s *State) Set(p Phase) {
	for {
		cur := s.phase.Load()
		if Phase(cur) == Draining {
			return
		}
		if s.phase.CompareAndSwap(cur, int32(p)) {
			return
		}
	}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	return Phase(s.phase.Load())
}

// Ready reports whether the process should receive new traffic.
func (s *State) Ready() bool {
	return s.Phase() == Serving
}
