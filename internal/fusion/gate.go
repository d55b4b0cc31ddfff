package fusion

import "github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"

// Gate lets an event through at most once per window. Window and timestamps
// share a unit, milliseconds or microseconds of the same Clock.
type Gate struct {
	window uint32
	last   uint32
}

// NewGate creates a gate with the given window. A zero window lets every
// call through.
func NewGate(window uint32) *Gate {
	return &Gate{window: window}
}

// Allow reports whether the window has elapsed since the last allowed call
// and, if so, restarts the window at now.
func (g *Gate) Allow(now uint32) bool {
	if timebase.Since(now, g.last) < g.window {
		return false
	}
	g.last = now
	return true
}
