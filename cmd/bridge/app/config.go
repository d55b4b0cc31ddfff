package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/fusion"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors/sim"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
)

const (
	ProtocolCRSF  Protocol = "crsf"
	ProtocolFrSky Protocol = "frsky"
)

const (
	defaultLoopPeriod      = time.Millisecond
	defaultFrameBuffer     = 32
	defaultSummaryInterval = 10 * time.Second
	defaultAltitudeWindow  = 100 * time.Millisecond
	defaultVoltageWindow   = 200 * time.Millisecond
	defaultRecorderPeriod  = 20 * time.Millisecond
)

var validProtocols = map[Protocol]struct{}{
	ProtocolCRSF:  {},
	ProtocolFrSky: {},
}

// Protocol is the downlink the frames are encoded for. Scheduling is the
// same for both.
type Protocol string

func (p Protocol) String() string {
	return string(p)
}

// ConfigError is returned for invalid configuration values.
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// TimeDuration is a time.Duration written as a string ("50ms") in the
// configuration file.
type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d)
}

// Milliseconds returns the duration in whole milliseconds for the 32 bit
// millisecond timebase.
func (d TimeDuration) Milliseconds() uint32 {
	return uint32(time.Duration(d) / time.Millisecond)
}

// Microseconds returns the duration in whole microseconds for the 32 bit
// microsecond timebase.
func (d TimeDuration) Microseconds() uint32 {
	return uint32(time.Duration(d) / time.Microsecond)
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

func (d TimeDuration) validate(name string) error {
	if d < 0 {
		return NewConfigError("%s must not be negative: %s", name, d)
	}
	return nil
}

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings" json:"settings"`
	Link        LinkConfig        `yaml:"link" json:"link"`
	Intervals   IntervalsConfig   `yaml:"intervals" json:"intervals"`
	Fusion      FusionConfig      `yaml:"fusion" json:"fusion"`
	PassThrough PassThroughConfig `yaml:"passThrough" json:"passThrough"`
	Sensors     sim.Config        `yaml:"sensors" json:"sensors"`
	Storage     StorageConfig     `yaml:"storage" json:"storage"`
	Boot        BootConfig        `yaml:"boot" json:"boot"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel" json:"logLevel"`
}

// LinkConfig configures the downlink and the two processing loops.
type LinkConfig struct {
	Protocol          Protocol     `yaml:"protocol" json:"protocol"`
	ChannelCapacity   int          `yaml:"channelCapacity" json:"channelCapacity"`
	AcquisitionPeriod TimeDuration `yaml:"acquisitionPeriod" json:"acquisitionPeriod"`
	OutputPeriod      TimeDuration `yaml:"outputPeriod" json:"outputPeriod"`
	FrameBuffer       int          `yaml:"frameBuffer" json:"frameBuffer"`
	SummaryInterval   TimeDuration `yaml:"summaryInterval" json:"summaryInterval"`
}

// IntervalsConfig holds the minimum interval between two frames of each
// category.
type IntervalsConfig struct {
	Voltage  TimeDuration `yaml:"voltage" json:"voltage"`
	Vario    TimeDuration `yaml:"vario" json:"vario"`
	GPS      TimeDuration `yaml:"gps" json:"gps"`
	Attitude TimeDuration `yaml:"attitude" json:"attitude"`
}

func (c *IntervalsConfig) Intervals() scheduler.Intervals {
	return scheduler.Intervals{
		Voltage:  c.Voltage.Duration(),
		Vario:    c.Vario.Duration(),
		GPS:      c.GPS.Duration(),
		Attitude: c.Attitude.Duration(),
	}
}

// FusionConfig configures the fusion units.
type FusionConfig struct {
	Airspeed AirspeedFusionConfig `yaml:"airspeed" json:"airspeed"`
	Vario    VarioFusionConfig    `yaml:"vario" json:"vario"`
}

type AirspeedFusionConfig struct {
	ComputeWindow TimeDuration `yaml:"computeWindow" json:"computeWindow"`
	PublishWindow TimeDuration `yaml:"publishWindow" json:"publishWindow"`
	Alpha         float64      `yaml:"alpha" json:"alpha"`
}

func (c *AirspeedFusionConfig) Unit() fusion.Config {
	return fusion.Config{
		Kind:            telemetry.Airspeed,
		ComputeWindowUs: c.ComputeWindow.Microseconds(),
		PublishWindowMs: c.PublishWindow.Milliseconds(),
		Alpha:           c.Alpha,
	}
}

type VarioFusionConfig struct {
	ComputeWindow TimeDuration       `yaml:"computeWindow" json:"computeWindow"`
	PublishWindow TimeDuration       `yaml:"publishWindow" json:"publishWindow"`
	Sensitivity   fusion.Sensitivity `yaml:"sensitivity" json:"sensitivity"`
	Hysteresis    float64            `yaml:"hysteresis" json:"hysteresis"`
}

func (c *VarioFusionConfig) Unit() fusion.Config {
	sensitivity := c.Sensitivity
	return fusion.Config{
		Kind:            telemetry.VerticalSpeed,
		ComputeWindowUs: c.ComputeWindow.Microseconds(),
		PublishWindowMs: c.PublishWindow.Milliseconds(),
		Sensitivity:     &sensitivity,
		Hysteresis:      c.Hysteresis,
	}
}

// PassThroughConfig bounds the rate at which direct measurements are pushed
// onto the channel. GPS fields are pushed once per fix.
type PassThroughConfig struct {
	Altitude TimeDuration `yaml:"altitude" json:"altitude"`
	Voltage  TimeDuration `yaml:"voltage" json:"voltage"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled        bool         `yaml:"enabled" json:"enabled"`
	DataDirectory  string       `yaml:"dataDirectory" json:"dataDirectory"`
	RecorderPeriod TimeDuration `yaml:"recorderPeriod" json:"recorderPeriod"`
}

// BootConfig configures the boot-request capability.
type BootConfig struct {
	FlagFile string `yaml:"flagFile" json:"flagFile"`
}

// NewConfig returns the configuration with all defaults applied.
func NewConfig() *Config {
	sensitivity := fusion.DefaultSensitivity()

	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
		Link: LinkConfig{
			Protocol:          ProtocolCRSF,
			ChannelCapacity:   intercore.DefaultCapacity,
			AcquisitionPeriod: NewTimeDuration(defaultLoopPeriod),
			OutputPeriod:      NewTimeDuration(defaultLoopPeriod),
			FrameBuffer:       defaultFrameBuffer,
			SummaryInterval:   NewTimeDuration(defaultSummaryInterval),
		},
		Intervals: IntervalsConfig{
			Voltage:  NewTimeDuration(scheduler.DefaultVoltageInterval),
			Vario:    NewTimeDuration(scheduler.DefaultVarioInterval),
			GPS:      NewTimeDuration(scheduler.DefaultGPSInterval),
			Attitude: NewTimeDuration(scheduler.DefaultAttitudeInterval),
		},
		Fusion: FusionConfig{
			Airspeed: AirspeedFusionConfig{
				ComputeWindow: NewTimeDuration(fusion.DefaultComputeWindow),
				PublishWindow: NewTimeDuration(fusion.DefaultPublishWindow),
				Alpha:         fusion.DefaultAirspeedAlpha,
			},
			Vario: VarioFusionConfig{
				ComputeWindow: NewTimeDuration(fusion.DefaultComputeWindow),
				PublishWindow: NewTimeDuration(fusion.DefaultPublishWindow),
				Sensitivity:   *sensitivity,
				Hysteresis:    fusion.DefaultVarioHysteresis,
			},
		},
		PassThrough: PassThroughConfig{
			Altitude: NewTimeDuration(defaultAltitudeWindow),
			Voltage:  NewTimeDuration(defaultVoltageWindow),
		},
		Storage: StorageConfig{
			RecorderPeriod: NewTimeDuration(defaultRecorderPeriod),
		},
	}
}

// LoadConfig reads the YAML configuration file at path on top of the
// defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if _, ok := validProtocols[c.Link.Protocol]; !ok {
		return NewConfigError("invalid protocol: %s", c.Link.Protocol)
	}
	if c.Link.ChannelCapacity < 1 || c.Link.ChannelCapacity > intercore.MaxCapacity {
		return NewConfigError("channel capacity must be between 1 and %d: %d", intercore.MaxCapacity, c.Link.ChannelCapacity)
	}
	if c.Link.FrameBuffer < 1 || c.Link.FrameBuffer > intercore.MaxCapacity {
		return NewConfigError("frame buffer must be between 1 and %d: %d", intercore.MaxCapacity, c.Link.FrameBuffer)
	}
	if c.Link.AcquisitionPeriod <= 0 || c.Link.OutputPeriod <= 0 {
		return NewConfigError("loop periods must be positive: acquisition=%s, output=%s", c.Link.AcquisitionPeriod, c.Link.OutputPeriod)
	}
	if c.Storage.Enabled && c.Storage.RecorderPeriod <= 0 {
		return NewConfigError("recorder period must be positive: %s", c.Storage.RecorderPeriod)
	}

	durations := []struct {
		name string
		d    TimeDuration
	}{
		{"link.summaryInterval", c.Link.SummaryInterval},
		{"intervals.voltage", c.Intervals.Voltage},
		{"intervals.vario", c.Intervals.Vario},
		{"intervals.gps", c.Intervals.GPS},
		{"intervals.attitude", c.Intervals.Attitude},
		{"fusion.airspeed.computeWindow", c.Fusion.Airspeed.ComputeWindow},
		{"fusion.airspeed.publishWindow", c.Fusion.Airspeed.PublishWindow},
		{"fusion.vario.computeWindow", c.Fusion.Vario.ComputeWindow},
		{"fusion.vario.publishWindow", c.Fusion.Vario.PublishWindow},
		{"passThrough.altitude", c.PassThrough.Altitude},
		{"passThrough.voltage", c.PassThrough.Voltage},
	}
	for _, v := range durations {
		if err := v.d.validate(v.name); err != nil {
			return err
		}
	}

	airspeed := c.Fusion.Airspeed.Unit()
	if err := airspeed.Validate(); err != nil {
		return NewConfigError("fusion.airspeed: %s", err)
	}
	vario := c.Fusion.Vario.Unit()
	if err := vario.Validate(); err != nil {
		return NewConfigError("fusion.vario: %s", err)
	}

	if err := c.Sensors.Validate(); err != nil {
		return NewConfigError("sensors: %s", err)
	}
	return nil
}
