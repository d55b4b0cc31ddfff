package timebase

import (
	"math"
	"testing"
	"time"
)

func TestSince_Wraparound(t *testing.T) {
	testCases := []struct {
		name string
		now  uint32
		ref  uint32
		want uint32
	}{
		{"no wrap", 1500, 1000, 500},
		{"equal", 42, 42, 0},
		{"wrap by one", 0, math.MaxUint32, 1},
		{"wrap small", 10, math.MaxUint32 - 9, 20},
		{"wrap 20ms in us", 19_000, math.MaxUint32 - 999, 20_000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Since(tc.now, tc.ref); got != tc.want {
				t.Errorf("Since(%d, %d) = %d, want %d", tc.now, tc.ref, got, tc.want)
			}
		})
	}
}

func TestManual_RolloverInterval(t *testing.T) {
	clock := NewManual(WithStart(math.MaxUint32 - 5_000))

	start := clock.Micros()
	clock.Advance(20 * time.Millisecond)
	end := clock.Micros()

	if end >= start {
		t.Fatalf("expected counter to roll over, start=%d end=%d", start, end)
	}
	if got := Since(end, start); got != 20_000 {
		t.Errorf("expected 20000us across rollover, got %d", got)
	}
}

func TestWaitUs(t *testing.T) {
	clock := NewManual(WithAutoAdvance(7 * time.Microsecond))

	before := clock.Micros()
	WaitUs(clock, 100)
	after := clock.Micros()

	if elapsed := Since(after, before); elapsed < 100 {
		t.Errorf("WaitUs returned after %dus, want at least 100us", elapsed)
	}
}

func TestWaitUs_AcrossRollover(t *testing.T) {
	clock := NewManual(WithStart(math.MaxUint32-10), WithAutoAdvance(3*time.Microsecond))

	before := clock.Micros()
	WaitUs(clock, 50)
	if elapsed := Since(clock.Micros(), before); elapsed < 50 || elapsed > 60 {
		t.Errorf("unexpected elapsed %dus after WaitUs(50)", elapsed)
	}
}

func TestWaitUs_Zero(t *testing.T) {
	clock := NewManual()
	WaitUs(clock, 0) // must not spin on a clock that never moves
}

func TestRoundDiv(t *testing.T) {
	testCases := []struct {
		n    int32
		d    uint32
		want int32
	}{
		{10, 0, 10},
		{-7, 0, -7},
		{0, 5, 0},
		{10, 4, 3},   // 2.5 rounds away from zero
		{9, 4, 2},    // 2.25
		{11, 4, 3},   // 2.75
		{-10, 4, -3}, // -2.5 rounds away from zero
		{-9, 4, -2},
		{-11, 4, -3},
		{1, 3, 0},
		{2, 3, 1},
		{-1, 3, 0},
		{-2, 3, -1},
		{math.MaxInt32, 2, 1 << 30},
		{math.MinInt32, 2, math.MinInt32 / 2},
		{100, 1, 100},
	}

	for _, tc := range testCases {
		if got := RoundDiv(tc.n, tc.d); got != tc.want {
			t.Errorf("RoundDiv(%d, %d) = %d, want %d", tc.n, tc.d, got, tc.want)
		}
	}
}

func TestSystem_Monotonic(t *testing.T) {
	clock := NewSystem()

	prev := clock.Micros()
	for i := 0; i < 1000; i++ {
		now := clock.Micros()
		if Since(now, prev) > uint32(time.Second/time.Microsecond) {
			t.Fatalf("clock jumped: prev=%d now=%d", prev, now)
		}
		prev = now
	}
}
