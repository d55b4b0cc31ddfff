package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Example(t *testing.T) {
	c, err := LoadConfig(filepath.Join("..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}

	if c.Link.Protocol != ProtocolCRSF {
		t.Errorf("Expected crsf, got %s", c.Link.Protocol)
	}
	if c.Intervals.GPS.Duration() != 2*time.Second {
		t.Errorf("Expected 2s GPS interval, got %s", c.Intervals.GPS)
	}
	if c.Fusion.Vario.Sensitivity.MaxAt != 1000 {
		t.Errorf("Unexpected vario sensitivity: %+v", c.Fusion.Vario.Sensitivity)
	}
	if c.Sensors.Baro == nil || c.Sensors.Baro.ClimbRateCmS != 150 {
		t.Errorf("Unexpected baro config: %+v", c.Sensors.Baro)
	}
	if len(c.Sensors.Voltages) != 2 {
		t.Errorf("Expected two voltage inputs, got %d", len(c.Sensors.Voltages))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "settings:\n  logLevel: debug\nlink:\n  protocol: frsky\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if c.Settings.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %s", c.Settings.LogLevel)
	}
	if c.Link.Protocol != ProtocolFrSky {
		t.Errorf("Expected frsky, got %s", c.Link.Protocol)
	}

	want := NewConfig()
	if c.Intervals != want.Intervals || c.Fusion != want.Fusion || c.Link.ChannelCapacity != want.Link.ChannelCapacity {
		t.Errorf("Defaults not preserved: %+v", c)
	}
	if got := c.Fusion.Airspeed.Unit(); got.ComputeWindowUs != 20_000 || got.PublishWindowMs != 200 {
		t.Errorf("Unexpected airspeed unit config: %+v", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "protocol", content: "link:\n  protocol: mavlink\n"},
		{name: "channel capacity", content: "link:\n  channelCapacity: 65\n"},
		{name: "negative interval", content: "intervals:\n  vario: -50ms\n"},
		{name: "alpha", content: "fusion:\n  airspeed:\n    alpha: 1.5\n"},
		{name: "sensitivity", content: "fusion:\n  vario:\n    sensitivity:\n      min: 400\n"},
		{name: "sensor", content: "sensors:\n  gps:\n    rateHz: 0\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("Expected *ConfigError, got %v", err)
			}
		})
	}

	if _, err := LoadConfig(writeConfig(t, "intervals:\n  vario: soon\n")); err == nil {
		t.Error("Expected error for malformed duration")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
