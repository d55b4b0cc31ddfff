package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/boot"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/fusion"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors/sim"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// collector is a frame sink keeping every frame.
type collector struct {
	frames []scheduler.Frame
}

func (c *collector) Emit(f scheduler.Frame) {
	c.frames = append(c.frames, f)
}

func (c *collector) count(category scheduler.Category) int {
	var n int
	for _, f := range c.frames {
		if f.Category == category {
			n++
		}
	}
	return n
}

func testConfig() *Config {
	c := NewConfig()
	c.Link.SummaryInterval = 0
	c.Sensors = sim.Config{
		Seed:     7,
		Airspeed: &sim.AirspeedConfig{DifferentialPressurePa: 400, SampleRateHz: 1000},
		Baro: &sim.BaroConfig{
			GroundPressurePa: 101325,
			TemperatureK:     288.15,
			ClimbRateCmS:     150,
			SampleRateHz:     50,
		},
		Voltages: []sim.VoltageConfig{{Channel: 1, MilliVolts: 11_100, SampleRateHz: 10}},
	}
	return c
}

// runSteps drives both loops in lockstep on a manual clock, one millisecond
// per step.
func runSteps(t *testing.T, o *Orchestrator, clock *timebase.Manual, d time.Duration) {
	t.Helper()
	for i := 0; i < int(d/time.Millisecond); i++ {
		clock.Advance(time.Millisecond)
		o.acquisition.Step()
		if o.output.Step() {
			t.Fatalf("Unexpected boot request at step %d", i)
		}
	}
}

func TestOrchestrator_Steps(t *testing.T) {
	clock := timebase.NewManual()
	config := testConfig()

	set, err := sim.New(&config.Sensors, clock)
	if err != nil {
		t.Fatalf("Failed to create sensors: %v", err)
	}

	frames := &collector{}
	o, err := NewOrchestrator(config, set, clock, boot.Never{}, discard, WithSinks(frames))
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}

	runSteps(t, o, clock, 10*time.Second)

	// Vario is published every 200ms from 200ms on, so its frames run at the
	// 50ms interval for most of the run.
	if n := frames.count(scheduler.Vario); n < 180 || n > 200 {
		t.Errorf("Expected about 196 vario frames, got %d", n)
	}
	if n := frames.count(scheduler.Voltage); n < 19 || n > 20 {
		t.Errorf("Expected about 20 voltage frames, got %d", n)
	}
	// Baro altitude alone makes a GPS frame eligible.
	if n := frames.count(scheduler.GPS); n < 4 || n > 5 {
		t.Errorf("Expected about 5 baro-only GPS frames, got %d", n)
	}
	if n := frames.count(scheduler.Attitude); n != 0 {
		t.Errorf("Expected no attitude frames without an attitude source, got %d", n)
	}

	store := o.output.Store()

	speed := store.Read(telemetry.VerticalSpeed)
	if !speed.Available || math.Abs(float64(speed.Value)-150) > 6 {
		t.Errorf("Expected vertical speed close to 150 cm/s, got %+v", speed)
	}

	altitude := store.Read(telemetry.Altitude)
	if !altitude.Available || math.Abs(float64(altitude.Value)-1500) > 20 {
		t.Errorf("Expected altitude close to 1500 cm after 10s, got %+v", altitude)
	}

	// Ambient comes from the barometer: 400 Pa at 101325 Pa and 288.15 K.
	want := fusion.AirspeedFactor * math.Sqrt(400*288.15/101325)
	airspeed := store.Read(telemetry.Airspeed)
	if !airspeed.Available || math.Abs(float64(airspeed.Value)-want) > want*0.01 {
		t.Errorf("Expected airspeed close to %.0f cm/s, got %+v", want, airspeed)
	}

	if v := store.Read(telemetry.Voltage1); !v.Available || v.Value != 11_100 {
		t.Errorf("Expected voltage 1 at 11100 mV, got %+v", v)
	}
	if v := store.Read(telemetry.Voltage2); v.Available {
		t.Errorf("Voltage 2 is not installed, got %+v", v)
	}

	if d := o.channel.Dropped(); d != 0 {
		t.Errorf("Expected no drops with lockstep loops, got %d", d)
	}
}

func TestOrchestrator_GPSAltitudeFallback(t *testing.T) {
	clock := timebase.NewManual()
	config := testConfig()
	config.Sensors.Baro = nil
	config.Sensors.GPS = &sim.GPSConfig{
		LatitudeDeg:    51.47,
		LongitudeDeg:   -0.45,
		AltitudeM:      120,
		GroundSpeedCmS: 1500,
		NumSatellites:  11,
		RateHz:         5,
	}

	set, err := sim.New(&config.Sensors, clock)
	if err != nil {
		t.Fatalf("Failed to create sensors: %v", err)
	}

	frames := &collector{}
	o, err := NewOrchestrator(config, set, clock, boot.Never{}, discard, WithSinks(frames))
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}

	runSteps(t, o, clock, 5*time.Second)

	var gps int
	for _, f := range frames.frames {
		if f.Category != scheduler.GPS {
			continue
		}
		gps++
		if f.AltitudeSource != scheduler.AltitudeGPS {
			t.Errorf("Expected GPS altitude source without a barometer, got %s", f.AltitudeSource)
		}
		if alt, ok := f.Altitude(); !ok || alt.Value != 12_000 {
			t.Errorf("Expected GPS altitude 12000 cm, got %+v", alt)
		}
	}
	if gps == 0 {
		t.Fatal("Expected GPS frames")
	}
	if n := frames.count(scheduler.Vario); n != 0 {
		t.Errorf("Expected no vario frames without a barometer, got %d", n)
	}

	// Without a barometer the airspeed uses standard atmosphere ambient.
	want := fusion.AirspeedFactor * math.Sqrt(400*fusion.ISATemperatureK/fusion.ISAPressurePa)
	if airspeed := o.output.Store().Read(telemetry.Airspeed); math.Abs(float64(airspeed.Value)-want) > want*0.01 {
		t.Errorf("Expected airspeed close to %.0f cm/s, got %+v", want, airspeed)
	}
}

func TestOrchestrator_RunRecordsAndStopsOnBootRequest(t *testing.T) {
	dir := t.TempDir()
	flag := filepath.Join(dir, "boot.flag")

	config := testConfig()
	config.Intervals.Vario = NewTimeDuration(10 * time.Millisecond)
	config.Fusion.Vario.PublishWindow = NewTimeDuration(20 * time.Millisecond)

	clock := timebase.NewSystem()
	set, err := sim.New(&config.Sensors, clock)
	if err != nil {
		t.Fatalf("Failed to create sensors: %v", err)
	}

	store := storage.NewSqliteStore(filepath.Join(dir, "flight.db"))
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionID, err := store.CreateSession(ctx, config.Link.Protocol.String(), config)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	o, err := NewOrchestrator(config, set, clock, boot.NewFileFlag(flag), discard, WithRecorder(store, sessionID))
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}

	go func() {
		time.Sleep(700 * time.Millisecond)
		_ = os.WriteFile(flag, nil, 0o600)
	}()

	if err = o.Run(ctx); !errors.Is(err, ErrBootRequested) {
		t.Fatalf("Expected ErrBootRequested, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Bridge did not stop on the boot request")
	}

	r, err := store.ReadFrames(ctx, sessionID, storage.WithCategory(scheduler.Vario))
	if err != nil {
		t.Fatalf("Failed to read frames: %v", err)
	}
	defer r.Close()

	var n int
	for r.Next(ctx) {
		if field, ok := r.Current().Frame.Field(telemetry.VerticalSpeed); !ok || !field.Available {
			t.Errorf("Vario frame without vertical speed: %+v", r.Current().Frame)
		}
		n++
	}
	if err = r.Error(); err != nil {
		t.Fatalf("Reader error: %v", err)
	}
	if n == 0 {
		t.Error("Expected recorded vario frames")
	}
	if sent := o.output.Sent(scheduler.Vario); uint64(n) > sent {
		t.Errorf("Recorded %d vario frames, only %d were sent", n, sent)
	}
}
