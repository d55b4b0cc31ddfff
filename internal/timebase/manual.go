package timebase

import (
	"sync/atomic"
	"time"
)

// WithStart sets the initial microsecond counter of a Manual clock. Values
// near math.MaxUint32 exercise counter rollover.
func WithStart(us uint64) func(*Manual) {
	return func(m *Manual) {
		m.us.Store(us)
	}
}

// WithAutoAdvance makes every Micros or Millis read advance the clock by step.
// This lets busy-wait loops such as WaitUs terminate under a Manual clock.
func WithAutoAdvance(step time.Duration) func(*Manual) {
	return func(m *Manual) {
		m.step = uint64(step / time.Microsecond)
	}
}

// Manual is a Clock that only moves when told to. It is safe for concurrent
// use so a test can drive it while loops read it.
type Manual struct {
	us   atomic.Uint64
	step uint64
}

// NewManual creates a Manual clock at zero.
func NewManual(options ...func(*Manual)) *Manual {
	var m Manual
	for _, option := range options {
		option(&m)
	}
	return &m
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.us.Add(uint64(d / time.Microsecond))
}

// Set moves the clock to an absolute microsecond count.
func (m *Manual) Set(us uint64) {
	m.us.Store(us)
}

func (m *Manual) Millis() uint32 {
	return uint32(m.read() / 1000)
}

func (m *Manual) Micros() uint32 {
	return uint32(m.read())
}

func (m *Manual) read() uint64 {
	if m.step == 0 {
		return m.us.Load()
	}
	return m.us.Add(m.step)
}
