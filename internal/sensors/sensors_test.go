package sensors

import (
	"math"
	"testing"
)

func TestAltitudeCm(t *testing.T) {
	const ref = 101325.0

	if alt := AltitudeCm(ref, ref); alt != 0 {
		t.Errorf("Expected zero altitude at reference pressure, got %v", alt)
	}
	if alt := AltitudeCm(0, ref); alt != 0 {
		t.Errorf("Expected zero altitude for invalid pressure, got %v", alt)
	}

	// About 12 Pa per metre close to sea level.
	if alt := AltitudeCm(ref-120, ref); math.Abs(alt-1000) > 20 {
		t.Errorf("Expected about 1000 cm, got %.1f", alt)
	}

	for _, h := range []float64{-5000, 0, 1500, 100_000} {
		if got := AltitudeCm(PressureAt(h, ref), ref); math.Abs(got-h) > 0.01 {
			t.Errorf("Round trip of %v cm gave %v", h, got)
		}
	}
}
