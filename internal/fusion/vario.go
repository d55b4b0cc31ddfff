package fusion

import (
	"fmt"
	"math"
)

// Vario defaults, with sensitivities expressed in thousandths of a
// smoothing factor and thresholds in cm/s.
const (
	DefaultSensitivityMin   = 50
	DefaultSensitivityMax   = 300
	DefaultSensitivityMinAt = 100
	DefaultSensitivityMaxAt = 1000
	DefaultVarioHysteresis  = 5
)

// Sensitivity adapts the smoothing factor to how fast the value moves: small
// changes are smoothed heavily, large ones pass through quickly.
type Sensitivity struct {
	Min   float64 `yaml:"min" json:"min"`     // Sensitivity below MinAt
	Max   float64 `yaml:"max" json:"max"`     // Sensitivity above MaxAt
	MinAt float64 `yaml:"minAt" json:"minAt"` // Change magnitude where interpolation starts
	MaxAt float64 `yaml:"maxAt" json:"maxAt"` // Change magnitude where interpolation ends
}

// DefaultSensitivity returns the vario sensitivity defaults.
func DefaultSensitivity() *Sensitivity {
	return &Sensitivity{
		Min:   DefaultSensitivityMin,
		Max:   DefaultSensitivityMax,
		MinAt: DefaultSensitivityMinAt,
		MaxAt: DefaultSensitivityMaxAt,
	}
}

// Validate checks the sensitivity bounds.
func (s *Sensitivity) Validate() error {
	if s.Min <= 0 || s.Max > 1000 || s.Min > s.Max {
		return fmt.Errorf("invalid sensitivity range: min=%0.f, max=%0.f", s.Min, s.Max)
	}
	if s.MinAt < 0 || s.MinAt >= s.MaxAt {
		return fmt.Errorf("invalid sensitivity thresholds: minAt=%0.f, maxAt=%0.f", s.MinAt, s.MaxAt)
	}
	return nil
}

// Alpha returns the smoothing factor for a change of delta between the raw
// and the smoothed value.
func (s *Sensitivity) Alpha(delta float64) float64 {
	d := math.Abs(delta)

	var sensitivity float64
	switch {
	case d <= s.MinAt:
		sensitivity = s.Min
	case d >= s.MaxAt:
		sensitivity = s.Max
	default:
		sensitivity = s.Min + (d-s.MinAt)*(s.Max-s.Min)/(s.MaxAt-s.MinAt)
	}
	return sensitivity / 1000
}

// Vario derives a vertical speed in cm/s from consecutive window averages of
// altitude in cm. The first window only records the reference altitude.
type Vario struct {
	prevAltitude float64
	primed       bool
}

// NewVario creates a vertical speed transform.
func NewVario() *Vario {
	return &Vario{}
}

// Apply implements Transform.
func (v *Vario) Apply(altitudeCm float64, elapsedUs uint32) (float64, bool) {
	if !v.primed {
		v.prevAltitude = altitudeCm
		v.primed = true
		return 0, false
	}
	if elapsedUs == 0 {
		return 0, false
	}

	speed := (altitudeCm - v.prevAltitude) * 1e6 / float64(elapsedUs)
	v.prevAltitude = altitudeCm
	return speed, true
}
