package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/fusion"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// AirspeedConfig simulates a differential pressure sensor.
type AirspeedConfig struct {
	DifferentialPressurePa float64 `yaml:"differentialPressurePa" json:"differentialPressurePa"`
	NoisePa                float64 `yaml:"noisePa" json:"noisePa"`
	SampleRateHz           int     `yaml:"sampleRateHz" json:"sampleRateHz"`
}

// BaroConfig simulates an MS5611 in steady climb or descent.
type BaroConfig struct {
	GroundPressurePa float64 `yaml:"groundPressurePa" json:"groundPressurePa"`
	TemperatureK     float64 `yaml:"temperatureK" json:"temperatureK"`
	ClimbRateCmS     float64 `yaml:"climbRateCmS" json:"climbRateCmS"`
	NoisePa          float64 `yaml:"noisePa" json:"noisePa"`
	SampleRateHz     int     `yaml:"sampleRateHz" json:"sampleRateHz"`
}

// GPSConfig simulates a receiver flying a straight track.
type GPSConfig struct {
	LatitudeDeg    float64 `yaml:"latitudeDeg" json:"latitudeDeg"`
	LongitudeDeg   float64 `yaml:"longitudeDeg" json:"longitudeDeg"`
	AltitudeM      float64 `yaml:"altitudeM" json:"altitudeM"`
	GroundSpeedCmS int32   `yaml:"groundSpeedCmS" json:"groundSpeedCmS"`
	HeadingDeg     float64 `yaml:"headingDeg" json:"headingDeg"`
	NumSatellites  int32   `yaml:"numSatellites" json:"numSatellites"`
	RateHz         int     `yaml:"rateHz" json:"rateHz"`
}

// VoltageConfig simulates one analog input.
type VoltageConfig struct {
	Channel      int     `yaml:"channel" json:"channel"` // 1..4
	MilliVolts   int32   `yaml:"milliVolts" json:"milliVolts"`
	NoiseMv      float64 `yaml:"noiseMv" json:"noiseMv"`
	SampleRateHz int     `yaml:"sampleRateHz" json:"sampleRateHz"`
}

// Config selects and configures the simulated sensors. A nil section means
// the sensor is not installed.
type Config struct {
	Seed     uint64          `yaml:"seed" json:"seed"`
	Airspeed *AirspeedConfig `yaml:"airspeed" json:"airspeed,omitempty"`
	Baro     *BaroConfig     `yaml:"baro" json:"baro,omitempty"`
	GPS      *GPSConfig      `yaml:"gps" json:"gps,omitempty"`
	Voltages []VoltageConfig `yaml:"voltages" json:"voltages,omitempty"`
}

// Validate checks the simulated sensor configuration.
func (c *Config) Validate() error {
	if c.Airspeed != nil && c.Airspeed.SampleRateHz <= 0 {
		return fmt.Errorf("sim.Config: airspeed sample rate must be positive: %d", c.Airspeed.SampleRateHz)
	}
	if c.Baro != nil {
		if c.Baro.SampleRateHz <= 0 {
			return fmt.Errorf("sim.Config: baro sample rate must be positive: %d", c.Baro.SampleRateHz)
		}
		if c.Baro.GroundPressurePa <= 0 || c.Baro.TemperatureK <= 0 {
			return fmt.Errorf("sim.Config: baro ground pressure and temperature must be positive")
		}
	}
	if c.GPS != nil && c.GPS.RateHz <= 0 {
		return fmt.Errorf("sim.Config: gps rate must be positive: %d", c.GPS.RateHz)
	}

	seen := map[int]struct{}{}
	for _, v := range c.Voltages {
		if v.Channel < 1 || v.Channel > sensors.NumVoltages {
			return fmt.Errorf("sim.Config: voltage channel must be between 1 and %d: %d", sensors.NumVoltages, v.Channel)
		}
		if _, ok := seen[v.Channel]; ok {
			return fmt.Errorf("sim.Config: duplicate voltage channel: %d", v.Channel)
		}
		if v.SampleRateHz <= 0 {
			return fmt.Errorf("sim.Config: voltage %d sample rate must be positive: %d", v.Channel, v.SampleRateHz)
		}
		seen[v.Channel] = struct{}{}
	}
	return nil
}

// New builds the simulated sensor set. All sources share clock and a seeded
// noise generator, so a run is reproducible.
func New(cfg *Config, clock timebase.Clock) (*sensors.Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	var set sensors.Set

	if cfg.Airspeed != nil {
		set.Airspeed = &airspeed{
			cfg:    *cfg.Airspeed,
			ticker: newTicker(clock, cfg.Airspeed.SampleRateHz),
			rng:    rng,
		}
	}

	if cfg.Baro != nil {
		set.Baro = &baro{
			cfg:    *cfg.Baro,
			clock:  clock,
			start:  clock.Micros(),
			ticker: newTicker(clock, cfg.Baro.SampleRateHz),
			rng:    rng,
		}
	}

	if cfg.GPS != nil {
		set.GPS = &gps{
			cfg:    *cfg.GPS,
			ticker: newTicker(clock, cfg.GPS.RateHz),
			lat:    cfg.GPS.LatitudeDeg,
			lon:    cfg.GPS.LongitudeDeg,
		}
	}

	if len(cfg.Voltages) > 0 {
		a := &analog{rng: rng}
		for _, v := range cfg.Voltages {
			a.inputs[v.Channel-1] = &voltage{cfg: v, ticker: newTicker(clock, v.SampleRateHz)}
			set.Voltages[v.Channel-1] = true
		}
		set.Analog = a
	}

	return &set, nil
}

// ticker reports when a new sample is ready at a fixed rate.
type ticker struct {
	gate  *fusion.Gate
	clock timebase.Clock
}

func newTicker(clock timebase.Clock, rateHz int) *ticker {
	periodUs := uint32(1_000_000 / rateHz)
	return &ticker{gate: fusion.NewGate(periodUs), clock: clock}
}

func (t *ticker) ready() bool {
	return t.gate.Allow(t.clock.Micros())
}

type airspeed struct {
	cfg    AirspeedConfig
	ticker *ticker
	rng    *rand.Rand
}

func (a *airspeed) ReadDifferentialPressure() (float64, bool) {
	if !a.ticker.ready() {
		return 0, false
	}
	return a.cfg.DifferentialPressurePa + a.rng.NormFloat64()*a.cfg.NoisePa, true
}

type baro struct {
	cfg    BaroConfig
	clock  timebase.Clock
	start  uint32
	ticker *ticker
	rng    *rand.Rand
}

func (b *baro) ReadBarometer() (sensors.BaroSample, bool) {
	if !b.ticker.ready() {
		return sensors.BaroSample{}, false
	}

	seconds := float64(timebase.Since(b.clock.Micros(), b.start)) / 1e6
	altitude := b.cfg.ClimbRateCmS * seconds
	return sensors.BaroSample{
		PressurePa:   sensors.PressureAt(altitude, b.cfg.GroundPressurePa) + b.rng.NormFloat64()*b.cfg.NoisePa,
		TemperatureK: b.cfg.TemperatureK,
	}, true
}

type gps struct {
	cfg      GPSConfig
	ticker   *ticker
	lat, lon float64
}

const earthRadiusCm = 637_100_000.0

func (g *gps) ReadFix() (sensors.Fix, bool) {
	if !g.ticker.ready() {
		return sensors.Fix{}, false
	}

	// Dead-reckon one fix interval along the configured heading.
	dist := float64(g.cfg.GroundSpeedCmS) / float64(g.cfg.RateHz)
	heading := g.cfg.HeadingDeg * math.Pi / 180
	g.lat += dist * math.Cos(heading) / earthRadiusCm * 180 / math.Pi
	g.lon += dist * math.Sin(heading) / (earthRadiusCm * math.Cos(g.lat*math.Pi/180)) * 180 / math.Pi

	return sensors.Fix{
		LatitudeE7:     int32(math.Round(g.lat * 1e7)),
		LongitudeE7:    int32(math.Round(g.lon * 1e7)),
		GroundSpeedCmS: g.cfg.GroundSpeedCmS,
		HeadingCdeg:    int32(math.Round(g.cfg.HeadingDeg * 100)),
		AltitudeCm:     int32(math.Round(g.cfg.AltitudeM * 100)),
		NumSatellites:  g.cfg.NumSatellites,
	}, true
}

type voltage struct {
	cfg    VoltageConfig
	ticker *ticker
}

type analog struct {
	inputs [sensors.NumVoltages]*voltage
	rng    *rand.Rand
}

func (a *analog) ReadVoltage(ch int) (int32, bool) {
	if ch < 0 || ch >= sensors.NumVoltages || a.inputs[ch] == nil {
		return 0, false
	}
	v := a.inputs[ch]
	if !v.ticker.ready() {
		return 0, false
	}
	return v.cfg.MilliVolts + int32(math.Round(a.rng.NormFloat64()*v.cfg.NoiseMv)), true
}
