package timebase

import "time"

// Clock is a monotonic source of elapsed time since boot. Both counters are
// 32-bit and wrap; intervals must always be computed with Since.
type Clock interface {
	Millis() uint32 // Elapsed milliseconds since boot
	Micros() uint32 // Elapsed microseconds since boot
}

// System is a Clock backed by the host monotonic clock.
type System struct {
	boot time.Time
}

// NewSystem creates a System clock whose zero is the moment of the call.
func NewSystem() *System {
	return &System{boot: time.Now()}
}

func (s *System) Millis() uint32 {
	return uint32(time.Since(s.boot).Milliseconds())
}

func (s *System) Micros() uint32 {
	return uint32(time.Since(s.boot).Microseconds())
}

// Since returns the interval between two counter readings of the same width.
// The unsigned subtraction keeps the result correct across a counter rollover.
func Since(now, ref uint32) uint32 {
	return now - ref
}

// WaitUs busy-polls the microsecond counter until at least delayUs
// microseconds have elapsed. Only meant for sub-millisecond delays; anything
// longer must be scheduled by the caller's loop instead.
func WaitUs(c Clock, delayUs uint32) {
	start := c.Micros()
	for Since(c.Micros(), start) < delayUs {
	}
}

// RoundDiv divides n by d rounding to the nearest integer, halves away from
// zero. A zero divisor returns n unchanged.
func RoundDiv(n int32, d uint32) int32 {
	if d == 0 {
		return n
	}

	num, div := int64(n), int64(d)
	half := div / 2
	if num >= 0 {
		return int32((num + half) / div)
	}
	return int32((num - half) / div)
}
