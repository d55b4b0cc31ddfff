package app

import (
	"testing"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// pendingAfter requests a boot once it has been polled n times.
type pendingAfter struct {
	n     int
	polls int
}

func (p *pendingAfter) IsBootRequestPending() bool {
	p.polls++
	return p.polls > p.n
}

func TestOutput_BootPolledAtLowRate(t *testing.T) {
	clock := timebase.NewManual()
	ch, err := intercore.NewChannel(intercore.DefaultCapacity, clock)
	if err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}

	requester := &pendingAfter{n: 3}
	o, err := NewOutput(testConfig(), ch, requester, clock, discard)
	if err != nil {
		t.Fatalf("Failed to create output: %v", err)
	}

	var stoppedAt time.Duration
	for step := time.Millisecond; step <= time.Second; step += time.Millisecond {
		clock.Advance(time.Millisecond)
		if o.Step() {
			stoppedAt = step
			break
		}
	}

	if stoppedAt != 400*time.Millisecond {
		t.Errorf("Expected stop on the fourth poll at 400ms, got %s", stoppedAt)
	}
	if requester.polls != 4 {
		t.Errorf("Expected 4 polls, got %d", requester.polls)
	}
}

func TestOutput_DrainsAndEmits(t *testing.T) {
	clock := timebase.NewManual()
	ch, err := intercore.NewChannel(intercore.DefaultCapacity, clock)
	if err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}

	ring, err := intercore.NewRing[scheduler.Frame](2)
	if err != nil {
		t.Fatalf("Failed to create ring: %v", err)
	}
	sink := &recorderSink{ring: ring}

	config := testConfig()
	config.Intervals.Vario = 0
	o, err := NewOutput(config, ch, nil, clock, discard, sink)
	if err != nil {
		t.Fatalf("Failed to create output: %v", err)
	}

	clock.Advance(time.Millisecond)
	ch.Send(telemetry.VerticalSpeed, 42)

	for i := 0; i < 5; i++ {
		o.Step()
	}

	if got := o.Store().Read(telemetry.VerticalSpeed); !got.Available || got.Value != 42 {
		t.Errorf("Expected drained vertical speed 42, got %+v", got)
	}
	if ring.Len() != 2 {
		t.Errorf("Expected a full frame ring, got %d frames", ring.Len())
	}
	if d := sink.dropped.Load(); d != 3 {
		t.Errorf("Expected 3 frames dropped by the recorder sink, got %d", d)
	}

	f, _ := ring.Pop()
	if f.Category != scheduler.Vario {
		t.Errorf("Expected vario frame, got %s", f.Category)
	}
}
