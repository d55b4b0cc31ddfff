package scheduler

import (
	"fmt"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
)

// Category is a class of telemetry frame with its own send interval.
type Category uint8

const (
	Voltage Category = iota
	Vario
	GPS
	Attitude

	NumCategories = int(iota)
)

var categoryNames = [NumCategories]string{
	Voltage:  "voltage",
	Vario:    "vario",
	GPS:      "gps",
	Attitude: "attitude",
}

func (c Category) String() string {
	if int(c) >= NumCategories {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown frame category: %s", name)
}

// Default intervals between two frames of the same category.
const (
	DefaultVoltageInterval  = 500 * time.Millisecond
	DefaultVarioInterval    = 50 * time.Millisecond
	DefaultGPSInterval      = 2000 * time.Millisecond
	DefaultAttitudeInterval = 500 * time.Millisecond
)

// Intervals holds the minimum interval between two frames of each category.
type Intervals struct {
	Voltage  time.Duration
	Vario    time.Duration
	GPS      time.Duration
	Attitude time.Duration
}

// DefaultIntervals returns the default frame intervals.
func DefaultIntervals() Intervals {
	return Intervals{
		Voltage:  DefaultVoltageInterval,
		Vario:    DefaultVarioInterval,
		GPS:      DefaultGPSInterval,
		Attitude: DefaultAttitudeInterval,
	}
}

// Of returns the interval of c in milliseconds.
func (i Intervals) Of(c Category) uint32 {
	return uint32(i.duration(c) / time.Millisecond)
}

// Validate checks that no interval is negative.
func (i Intervals) Validate() error {
	for c := 0; c < NumCategories; c++ {
		if d := i.duration(Category(c)); d < 0 {
			return fmt.Errorf("scheduler.Intervals: %s interval must not be negative: %s", Category(c), d)
		}
	}
	return nil
}

func (i Intervals) duration(c Category) time.Duration {
	switch c {
	case Voltage:
		return i.Voltage
	case Vario:
		return i.Vario
	case GPS:
		return i.GPS
	case Attitude:
		return i.Attitude
	}
	return 0
}

// AltitudeSource tells which sensor provided a frame's altitude field.
type AltitudeSource uint8

const (
	AltitudeNone AltitudeSource = iota
	AltitudeBaro
	AltitudeGPS
)

func (s AltitudeSource) String() string {
	switch s {
	case AltitudeBaro:
		return "baro"
	case AltitudeGPS:
		return "gps"
	default:
		return "none"
	}
}

// ParseAltitudeSource returns the altitude source with the given name.
func ParseAltitudeSource(name string) (AltitudeSource, error) {
	for _, s := range []AltitudeSource{AltitudeNone, AltitudeBaro, AltitudeGPS} {
		if s.String() == name {
			return s, nil
		}
	}
	return AltitudeNone, fmt.Errorf("unknown altitude source: %s", name)
}

// Frame is one telemetry frame due for transmission. Fields carry their own
// availability; encoders skip or default unavailable ones.
type Frame struct {
	Category       Category
	TimestampMs    uint32
	Fields         []telemetry.Field
	AltitudeSource AltitudeSource // Only meaningful for GPS frames
}

// Field returns the field of the given kind.
func (f *Frame) Field(kind telemetry.Kind) (telemetry.Field, bool) {
	for _, field := range f.Fields {
		if field.Kind == kind {
			return field, true
		}
	}
	return telemetry.Field{}, false
}

// Altitude returns the altitude field of a GPS frame, whichever sensor
// provided it.
func (f *Frame) Altitude() (telemetry.Field, bool) {
	switch f.AltitudeSource {
	case AltitudeGPS:
		return f.Field(telemetry.GPSAltitude)
	default:
		return f.Field(telemetry.Altitude)
	}
}
