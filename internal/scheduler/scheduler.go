package scheduler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// priority is the order in which due categories are considered.
var priority = [NumCategories]Category{Voltage, Vario, GPS, Attitude}

var (
	voltageKinds  = telemetry.Voltages[:]
	gpsKinds      = []telemetry.Kind{telemetry.GPSLatitude, telemetry.GPSLongitude, telemetry.Altitude, telemetry.GPSAltitude}
	attitudeKinds = []telemetry.Kind{telemetry.Pitch, telemetry.Roll, telemetry.Yaw}
)

type entry struct {
	intervalMs uint32
	lastSentMs uint32
	sent       uint64
}

// WithLogger sets the logger for the scheduler.
func WithLogger(logger *slog.Logger) func(*Scheduler) {
	return func(s *Scheduler) {
		s.logger = logger.With(slog.String("component", "scheduler"))
	}
}

// Scheduler paces telemetry frames on a shared, rate-limited downlink. Each
// tick builds at most one frame: the first category, in priority order,
// whose interval has elapsed and whose data is available.
//
// A Scheduler is owned by the output goroutine and performs no locking.
type Scheduler struct {
	store   telemetry.Provider
	entries [NumCategories]entry
	logger  *slog.Logger
}

// New creates a scheduler reading measurements from store.
func New(store telemetry.Provider, intervals Intervals, options ...func(*Scheduler)) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("scheduler: measurement store is required")
	}
	if err := intervals.Validate(); err != nil {
		return nil, err
	}

	s := Scheduler{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for c := 0; c < NumCategories; c++ {
		s.entries[c].intervalMs = intervals.Of(Category(c))
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Tick returns the frame due at nowMs, if any. A category is sent only when
// its interval has elapsed since its previous send and its backing data is
// available; an unavailable category keeps its last send time so it is
// retried on every following tick.
func (s *Scheduler) Tick(nowMs uint32) (Frame, bool) {
	for _, c := range priority {
		e := &s.entries[c]
		if timebase.Since(nowMs, e.lastSentMs) < e.intervalMs {
			continue
		}
		if !s.available(c) {
			continue
		}

		f := s.build(c, nowMs)
		e.lastSentMs = nowMs
		e.sent++

		s.logger.Debug("frame due", slog.String("category", c.String()), slog.Int("fields", len(f.Fields)))
		return f, true
	}
	return Frame{}, false
}

// Due reports whether the interval of c has elapsed at nowMs, regardless of
// data availability.
func (s *Scheduler) Due(c Category, nowMs uint32) bool {
	if int(c) >= NumCategories {
		return false
	}
	e := &s.entries[c]
	return timebase.Since(nowMs, e.lastSentMs) >= e.intervalMs
}

// Sent returns the number of frames of c built so far.
func (s *Scheduler) Sent(c Category) uint64 {
	if int(c) >= NumCategories {
		return 0
	}
	return s.entries[c].sent
}

// Interval returns the interval of c in milliseconds.
func (s *Scheduler) Interval(c Category) uint32 {
	if int(c) >= NumCategories {
		return 0
	}
	return s.entries[c].intervalMs
}

func (s *Scheduler) available(c Category) bool {
	switch c {
	case Voltage:
		return anyAvailable(s.store, voltageKinds...)
	case Vario:
		return anyAvailable(s.store, telemetry.VerticalSpeed)
	case GPS:
		return anyAvailable(s.store, gpsKinds...)
	case Attitude:
		return anyAvailable(s.store, attitudeKinds...)
	}
	return false
}

func (s *Scheduler) build(c Category, nowMs uint32) Frame {
	f := Frame{Category: c, TimestampMs: nowMs}

	switch c {
	case Voltage:
		f.Fields = s.fields(voltageKinds...)

	case Vario:
		f.Fields = s.fields(telemetry.VerticalSpeed)

	case GPS:
		altitude, source := SelectAltitude(s.store)
		f.AltitudeSource = source
		f.Fields = append(s.fields(
			telemetry.GPSLatitude,
			telemetry.GPSLongitude,
			telemetry.GPSGroundSpeed,
			telemetry.GPSHeading,
			telemetry.GPSNumSatellites,
		), altitude)

	case Attitude:
		f.Fields = s.fields(attitudeKinds...)
	}

	return f
}

func (s *Scheduler) fields(kinds ...telemetry.Kind) []telemetry.Field {
	fields := make([]telemetry.Field, len(kinds))
	for i, k := range kinds {
		fields[i] = telemetry.Field{Kind: k, OneMeasurement: s.store.Read(k)}
	}
	return fields
}

// SelectAltitude picks the altitude to transmit: the barometric altitude
// when available because it is more accurate, otherwise the GPS altitude.
// With neither, the returned field is unavailable.
func SelectAltitude(p telemetry.Provider) (telemetry.Field, AltitudeSource) {
	if m := p.Read(telemetry.Altitude); m.Available {
		return telemetry.Field{Kind: telemetry.Altitude, OneMeasurement: m}, AltitudeBaro
	}
	if m := p.Read(telemetry.GPSAltitude); m.Available {
		return telemetry.Field{Kind: telemetry.GPSAltitude, OneMeasurement: m}, AltitudeGPS
	}
	return telemetry.Field{Kind: telemetry.Altitude}, AltitudeNone
}

func anyAvailable(p telemetry.Provider, kinds ...telemetry.Kind) bool {
	for _, k := range kinds {
		if p.Read(k).Available {
			return true
		}
	}
	return false
}
