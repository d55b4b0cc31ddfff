package intercore

import (
	"sync/atomic"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// DefaultCapacity is the channel size used by the bridge.
const DefaultCapacity = 16

// Channel carries measurements from the acquisition loop to the output loop.
// Overflow drops the newest measurement; the drop is counted, never reported
// as an error.
type Channel struct {
	ring    *Ring[telemetry.Measurement]
	clock   timebase.Clock
	dropped atomic.Uint64
}

// NewChannel creates a measurement channel of the given capacity whose
// entries are stamped with clock.
func NewChannel(capacity int, clock timebase.Clock) (*Channel, error) {
	ring, err := NewRing[telemetry.Measurement](capacity)
	if err != nil {
		return nil, err
	}
	return &Channel{ring: ring, clock: clock}, nil
}

// Send enqueues a measurement of kind stamped with the current millisecond
// counter. It returns false when the channel was full and the value dropped.
// Producer side only.
func (c *Channel) Send(kind telemetry.Kind, value int32) bool {
	return c.Push(telemetry.Measurement{
		Kind:        kind,
		Value:       value,
		TimestampMs: c.clock.Millis(),
	})
}

// Push enqueues an already stamped measurement. Producer side only.
func (c *Channel) Push(m telemetry.Measurement) bool {
	if !c.ring.Push(m) {
		c.dropped.Add(1)
		return false
	}
	return true
}

// Receive dequeues the oldest measurement without blocking. Consumer side only.
func (c *Channel) Receive() (telemetry.Measurement, bool) {
	return c.ring.Pop()
}

// DrainTo moves every pending measurement into store and returns how many
// were moved. Consumer side only.
func (c *Channel) DrainTo(store *telemetry.Store) int {
	var n int
	for {
		m, ok := c.ring.Pop()
		if !ok {
			return n
		}
		if store.Update(m) {
			n++
		}
	}
}

// Dropped returns the number of measurements discarded on a full channel.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Len returns the number of unread measurements.
func (c *Channel) Len() int {
	return c.ring.Len()
}

// Cap returns the channel capacity.
func (c *Channel) Cap() int {
	return c.ring.Cap()
}
