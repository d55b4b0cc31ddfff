package fusion

import "math"

const (
	// AirspeedFactor converts sqrt(Pa * K / Pa) into cm/s:
	// 100 * sqrt(2 * 287.05), with 287.05 J/(kg*K) the specific gas constant of dry air.
	AirspeedFactor = 2396.0

	// ISATemperatureK is the standard sea-level temperature.
	ISATemperatureK = 288.15

	// ISAPressurePa is the standard sea-level static pressure.
	ISAPressurePa = 101325.0
)

// Airspeed converts an average differential pressure in pascals into an
// airspeed in cm/s. Ambient temperature and static pressure default to ISA
// sea level until a barometer provides them.
type Airspeed struct {
	temperatureK float64
	pressurePa   float64
}

// NewAirspeed creates an airspeed transform at ISA conditions.
func NewAirspeed() *Airspeed {
	return &Airspeed{
		temperatureK: ISATemperatureK,
		pressurePa:   ISAPressurePa,
	}
}

// SetAmbient updates the air temperature (kelvin) and static pressure
// (pascals) used by the next computation.
func (a *Airspeed) SetAmbient(temperatureK, pressurePa float64) {
	a.temperatureK = temperatureK
	a.pressurePa = pressurePa
}

// Apply implements Transform. Negative differential pressure is clamped to
// zero; a non-positive ambient yields no value.
func (a *Airspeed) Apply(difPressurePa float64, _ uint32) (float64, bool) {
	if a.pressurePa <= 0 || a.temperatureK <= 0 {
		return 0, false
	}
	if difPressurePa < 0 {
		difPressurePa = 0
	}
	return AirspeedFactor * math.Sqrt(difPressurePa*a.temperatureK/a.pressurePa), true
}
