package fusion

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

const (
	// DefaultComputeWindow is the accumulation window of a fusion unit.
	DefaultComputeWindow = 20 * time.Millisecond

	// DefaultPublishWindow is the minimum time between two published values.
	DefaultPublishWindow = 200 * time.Millisecond

	// DefaultAirspeedAlpha is the exponential smoothing factor for airspeed.
	DefaultAirspeedAlpha = 0.1
)

// Publisher receives the values a unit publishes. *intercore.Channel
// implements it.
type Publisher interface {
	Send(kind telemetry.Kind, value int32) bool
}

// Transform turns the average of one accumulation window into a raw
// instantaneous value. elapsedUs is the time since the previous successful
// window. ok is false when no value can be derived; the smoothed value is
// then left unchanged.
type Transform interface {
	Apply(avg float64, elapsedUs uint32) (raw float64, ok bool)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(avg float64, elapsedUs uint32) (float64, bool)

func (f TransformFunc) Apply(avg float64, elapsedUs uint32) (float64, bool) {
	return f(avg, elapsedUs)
}

// Config holds the tunables of a fusion unit.
type Config struct {
	Kind            telemetry.Kind // Published measurement kind
	ComputeWindowUs uint32         // Accumulation window; zero computes on every tick
	PublishWindowMs uint32         // Publish gate; zero publishes on every compute
	Alpha           float64        // Fixed smoothing factor in (0, 1]
	Sensitivity     *Sensitivity   // Optional adaptive smoothing, overrides Alpha
	Hysteresis      float64        // Minimum change of the published value, zero disables
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("fusion.Config: invalid kind: %d", c.Kind)
	}
	if c.Sensitivity == nil && (c.Alpha <= 0 || c.Alpha > 1) {
		return fmt.Errorf("fusion.Config: smoothing factor must be in (0, 1]: %0.3f given", c.Alpha)
	}
	if c.Sensitivity != nil {
		if err := c.Sensitivity.Validate(); err != nil {
			return fmt.Errorf("fusion.Config: %w", err)
		}
	}
	if c.Hysteresis < 0 {
		return fmt.Errorf("fusion.Config: hysteresis must not be negative: %0.2f given", c.Hysteresis)
	}
	return nil
}

// WithLogger sets the logger for the unit.
func WithLogger(logger *slog.Logger) func(*Unit) {
	return func(u *Unit) {
		u.logger = logger.With(slog.String("kind", u.cfg.Kind.String()))
	}
}

// WithInstalled marks whether a sensor feeding the unit was detected at
// startup. A unit without a sensor is a no-op.
func WithInstalled(installed bool) func(*Unit) {
	return func(u *Unit) {
		u.installed = installed
	}
}

// Unit fuses raw samples into a published value: samples are accumulated
// over a compute window, the window average is transformed into a raw value,
// the raw value is exponentially smoothed, and the smoothed value is
// published at most once per publish window.
//
// A Unit is owned by the acquisition goroutine and performs no locking.
type Unit struct {
	cfg       Config
	transform Transform
	out       Publisher
	clock     timebase.Clock
	installed bool
	logger    *slog.Logger

	acc           Accumulator
	smoothed      float64
	reported      float64
	primed        bool
	lastComputeUs uint32
	lastAppliedUs uint32
	publish       *Gate
}

// NewUnit creates a fusion unit publishing to out.
func NewUnit(cfg Config, transform Transform, out Publisher, clock timebase.Clock, options ...func(*Unit)) (*Unit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transform == nil || out == nil || clock == nil {
		return nil, fmt.Errorf("fusion: transform, publisher and clock are required")
	}

	u := Unit{
		cfg:       cfg,
		transform: transform,
		out:       out,
		clock:     clock,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		publish:   NewGate(cfg.PublishWindowMs),
	}

	for _, option := range options {
		option(&u)
	}

	return &u, nil
}

// AddSample accumulates a raw sample into the current window.
func (u *Unit) AddSample(v float64) {
	if !u.installed {
		return
	}
	u.acc.Add(v)
}

// Tick advances the unit. It computes a new smoothed value once the compute
// window has elapsed and publishes it when the publish window allows. It
// returns true when a value was handed to the publisher.
func (u *Unit) Tick() bool {
	if !u.installed {
		return false
	}

	nowUs := u.clock.Micros()
	if timebase.Since(nowUs, u.lastComputeUs) < u.cfg.ComputeWindowUs {
		return false
	}
	u.lastComputeUs = nowUs

	avg, ok := u.acc.Average()
	u.acc.Reset()
	if ok {
		elapsed := timebase.Since(nowUs, u.lastAppliedUs)
		u.lastAppliedUs = nowUs

		if raw, ok := u.transform.Apply(avg, elapsed); ok {
			u.smooth(raw)
		}
	}

	if !u.primed || !u.publish.Allow(u.clock.Millis()) {
		return false
	}

	value := int32(math.Round(u.reported))
	if !u.out.Send(u.cfg.Kind, value) {
		u.logger.Debug("channel full, value dropped", slog.Int("value", int(value)))
		return false
	}
	return true
}

// Value returns the current smoothed value. ok is false until the first
// window produced a value.
func (u *Unit) Value() (float64, bool) {
	return u.smoothed, u.primed
}

// Installed reports whether the unit has a sensor.
func (u *Unit) Installed() bool {
	return u.installed
}

func (u *Unit) smooth(raw float64) {
	alpha := u.cfg.Alpha
	if u.cfg.Sensitivity != nil {
		alpha = u.cfg.Sensitivity.Alpha(raw - u.smoothed)
	}
	u.smoothed += alpha * (raw - u.smoothed)

	if !u.primed || math.Abs(u.smoothed-u.reported) > u.cfg.Hysteresis {
		u.reported = u.smoothed
	}
	u.primed = true
}
