package telemetry

import "fmt"

// Kind identifies a measured quantity. Units are fixed per kind.
type Kind uint8

const (
	Airspeed      Kind = iota // Airspeed in cm/s
	VerticalSpeed             // Vertical speed in cm/s
	Altitude                  // Barometric relative altitude in cm
	Voltage1                  // Analog voltage 1 in mV
	Voltage2                  // Analog voltage 2 in mV
	Voltage3                  // Analog voltage 3 in mV
	Voltage4                  // Analog voltage 4 in mV
	GPSLatitude               // GPS latitude in degrees * 1e7
	GPSLongitude              // GPS longitude in degrees * 1e7
	GPSGroundSpeed            // GPS ground speed in cm/s
	GPSHeading                // GPS heading in degrees * 100
	GPSAltitude               // GPS altitude above mean sea level in cm
	GPSNumSatellites          // Number of satellites used in the fix
	Pitch                     // Pitch angle in degrees * 100
	Roll                      // Roll angle in degrees * 100
	Yaw                       // Yaw angle in degrees * 100

	NumKinds = int(iota)
)

var kindNames = [NumKinds]string{
	Airspeed:         "airspeed",
	VerticalSpeed:    "vertical-speed",
	Altitude:         "altitude",
	Voltage1:         "voltage-1",
	Voltage2:         "voltage-2",
	Voltage3:         "voltage-3",
	Voltage4:         "voltage-4",
	GPSLatitude:      "gps-latitude",
	GPSLongitude:     "gps-longitude",
	GPSGroundSpeed:   "gps-speed",
	GPSHeading:       "gps-heading",
	GPSAltitude:      "gps-altitude",
	GPSNumSatellites: "gps-satellite-count",
	Pitch:            "pitch",
	Roll:             "roll",
	Yaw:              "yaw",
}

var kindUnits = [NumKinds]string{
	Airspeed:         "cm/s",
	VerticalSpeed:    "cm/s",
	Altitude:         "cm",
	Voltage1:         "mV",
	Voltage2:         "mV",
	Voltage3:         "mV",
	Voltage4:         "mV",
	GPSLatitude:      "deg*1e7",
	GPSLongitude:     "deg*1e7",
	GPSGroundSpeed:   "cm/s",
	GPSHeading:       "deg*100",
	GPSAltitude:      "cm",
	GPSNumSatellites: "",
	Pitch:            "deg*100",
	Roll:             "deg*100",
	Yaw:              "deg*100",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return int(k) < NumKinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Unit returns the fixed unit of the kind's value.
func (k Kind) Unit() string {
	if !k.Valid() {
		return ""
	}
	return kindUnits[k]
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown measurement kind: %s", name)
}

// Voltages lists the analog voltage kinds in channel order.
var Voltages = [...]Kind{Voltage1, Voltage2, Voltage3, Voltage4}

// Measurement is a single timestamped value travelling from the acquisition
// side to the output side.
type Measurement struct {
	Kind        Kind
	Value       int32
	TimestampMs uint32 // Producer's millisecond counter when the value was sent
}

// OneMeasurement is the last known value of a kind. Available is false until
// the first update, or after the source has been marked absent.
type OneMeasurement struct {
	Available   bool
	Value       int32
	TimestampMs uint32
}

// Field is a frame payload entry: a kind and the store slot it was read from.
type Field struct {
	Kind Kind
	OneMeasurement
}
