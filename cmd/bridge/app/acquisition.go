package app

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/fusion"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// Acquisition is the producer side of the bridge. It reads the installed
// sensors, feeds the fusion units and pushes direct measurements onto the
// channel. It is driven by a single goroutine.
type Acquisition struct {
	sensors *sensors.Set
	out     *intercore.Channel
	clock   timebase.Clock
	logger  *slog.Logger

	airspeedModel *fusion.Airspeed
	airspeed      *fusion.Unit
	vario         *fusion.Unit

	baroRefPa    float64
	baroPrimed   bool
	altitudeGate *fusion.Gate
	voltageGates [sensors.NumVoltages]*fusion.Gate
}

// NewAcquisition creates the acquisition side for the given sensor set.
func NewAcquisition(config *Config, set *sensors.Set, out *intercore.Channel, clock timebase.Clock, logger *slog.Logger) (*Acquisition, error) {
	installed := set.Installed()

	a := Acquisition{
		sensors:       set,
		out:           out,
		clock:         clock,
		logger:        logger.With(slog.String("component", "acquisition")),
		airspeedModel: fusion.NewAirspeed(),
		altitudeGate:  fusion.NewGate(config.PassThrough.Altitude.Milliseconds()),
	}
	for i := range a.voltageGates {
		a.voltageGates[i] = fusion.NewGate(config.PassThrough.Voltage.Milliseconds())
	}

	var err error
	a.airspeed, err = fusion.NewUnit(config.Fusion.Airspeed.Unit(), a.airspeedModel, out, clock,
		fusion.WithInstalled(installed.Airspeed),
		fusion.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating airspeed unit: %w", err)
	}

	a.vario, err = fusion.NewUnit(config.Fusion.Vario.Unit(), fusion.NewVario(), out, clock,
		fusion.WithInstalled(installed.Baro),
		fusion.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating vario unit: %w", err)
	}

	a.logger.Info("sensors detected",
		slog.Bool("airspeed", installed.Airspeed),
		slog.Bool("baro", installed.Baro),
		slog.Bool("gps", installed.GPS),
		slog.Any("voltages", installed.Voltages))

	return &a, nil
}

// Step runs one iteration of the acquisition loop.
func (a *Acquisition) Step() {
	if a.sensors.Airspeed != nil {
		if pa, ok := a.sensors.Airspeed.ReadDifferentialPressure(); ok {
			a.airspeed.AddSample(pa)
		}
	}

	if a.sensors.Baro != nil {
		if s, ok := a.sensors.Baro.ReadBarometer(); ok {
			a.handleBaro(s)
		}
	}

	if a.sensors.GPS != nil {
		if fix, ok := a.sensors.GPS.ReadFix(); ok {
			a.handleFix(fix)
		}
	}

	if a.sensors.Analog != nil {
		for ch, used := range a.sensors.Voltages {
			if !used {
				continue
			}
			if mv, ok := a.sensors.Analog.ReadVoltage(ch); ok && a.voltageGates[ch].Allow(a.clock.Millis()) {
				a.out.Send(telemetry.Voltages[ch], mv)
			}
		}
	}

	a.airspeed.Tick()
	a.vario.Tick()
}

func (a *Acquisition) handleBaro(s sensors.BaroSample) {
	// Altitude is relative to the first conversion after power up.
	if !a.baroPrimed {
		a.baroRefPa = s.PressurePa
		a.baroPrimed = true
	}

	a.airspeedModel.SetAmbient(s.TemperatureK, s.PressurePa)

	altitude := sensors.AltitudeCm(s.PressurePa, a.baroRefPa)
	a.vario.AddSample(altitude)

	if a.altitudeGate.Allow(a.clock.Millis()) {
		a.out.Send(telemetry.Altitude, int32(math.Round(altitude)))
	}
}

func (a *Acquisition) handleFix(fix sensors.Fix) {
	a.out.Send(telemetry.GPSLatitude, fix.LatitudeE7)
	a.out.Send(telemetry.GPSLongitude, fix.LongitudeE7)
	a.out.Send(telemetry.GPSGroundSpeed, fix.GroundSpeedCmS)
	a.out.Send(telemetry.GPSHeading, fix.HeadingCdeg)
	a.out.Send(telemetry.GPSAltitude, fix.AltitudeCm)
	a.out.Send(telemetry.GPSNumSatellites, fix.NumSatellites)
}
