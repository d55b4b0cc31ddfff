package sensors

import "math"

// NumVoltages is the number of analog inputs.
const NumVoltages = 4

// DifferentialPressure is an airspeed sensor such as an MS4525 or SDP3x.
type DifferentialPressure interface {
	// ReadDifferentialPressure returns a new sample in pascals. ok is false
	// when no new sample is ready.
	ReadDifferentialPressure() (pa float64, ok bool)
}

// BaroSample is one barometer conversion.
type BaroSample struct {
	PressurePa   float64
	TemperatureK float64
}

// Barometer is a static pressure sensor such as an MS5611.
type Barometer interface {
	ReadBarometer() (BaroSample, bool)
}

// Fix is one decoded GPS navigation solution.
type Fix struct {
	LatitudeE7     int32 // Degrees * 1e7
	LongitudeE7    int32 // Degrees * 1e7
	GroundSpeedCmS int32
	HeadingCdeg    int32 // Degrees * 100
	AltitudeCm     int32 // Above mean sea level
	NumSatellites  int32
}

// GPS is a receiver delivering decoded fixes.
type GPS interface {
	ReadFix() (Fix, bool)
}

// Analog reads the voltage inputs.
type Analog interface {
	// ReadVoltage returns a new sample of input ch (0-based) in millivolts.
	ReadVoltage(ch int) (mv int32, ok bool)
}

// Set holds the sensors detected at startup. A nil source is not installed.
type Set struct {
	Airspeed DifferentialPressure
	Baro     Barometer
	GPS      GPS
	Analog   Analog
	Voltages [NumVoltages]bool // Analog inputs in use
}

// Installed summarizes which sources were detected.
type Installed struct {
	Airspeed bool
	Baro     bool
	GPS      bool
	Voltages [NumVoltages]bool
}

// Installed returns the detection flags of the set.
func (s *Set) Installed() Installed {
	in := Installed{
		Airspeed: s.Airspeed != nil,
		Baro:     s.Baro != nil,
		GPS:      s.GPS != nil,
	}
	if s.Analog != nil {
		in.Voltages = s.Voltages
	}
	return in
}

// AltitudeCm returns the altitude in cm of pressurePa relative to the
// reference pressure refPa, using the international barometric formula.
func AltitudeCm(pressurePa, refPa float64) float64 {
	if pressurePa <= 0 || refPa <= 0 {
		return 0
	}
	return 4433000 * (1 - math.Pow(pressurePa/refPa, 1/5.255))
}

// PressureAt is the inverse of AltitudeCm.
func PressureAt(altitudeCm, refPa float64) float64 {
	return refPa * math.Pow(1-altitudeCm/4433000, 5.255)
}
