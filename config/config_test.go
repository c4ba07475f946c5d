package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/vario/sentence"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, sentence.KindLK8, cfg.Kind())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
bus:
  adapter: mcp2221
eeprom:
  address: 0x51
sentence:
  format: lxnav
  interval: 1s
  thermometer: tc74
  static:
    height: 1200
    battery: 3.9
serial:
  port: /dev/ttyUSB0
  baud: 115200
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mcp2221", cfg.Bus.Adapter)
	assert.Equal(t, "/dev/i2c-1", cfg.Bus.Device, "defaults kept for missing keys")
	assert.Equal(t, 0x51, cfg.EEPROM.Address)
	assert.Equal(t, sentence.KindLxNav, cfg.Kind())
	assert.Equal(t, Duration(time.Second), cfg.Sentence.Interval)
	assert.Equal(t, Duration(50*time.Millisecond), cfg.Sentence.PollPeriod)
	assert.Equal(t, "tc74", cfg.Sentence.Thermometer)
	assert.Equal(t, 1200.0, cfg.Sentence.Static.Height)
	assert.Equal(t, 3.9, cfg.Sentence.Static.Battery)
	assert.Equal(t, 20.0, cfg.Sentence.Static.Temperature)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
}

func TestLoad_SimulatedAdapter(t *testing.T) {
	path := writeConfig(t, "bus:\n  adapter: simulated\n  image: /tmp/eeprom.bin\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "simulated", cfg.Bus.Adapter)
	assert.Equal(t, "/tmp/eeprom.bin", cfg.Bus.Image)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedError string
	}{
		{"bad duration", "sentence:\n  interval: soon\n", "could not parse config file"},
		{"unknown adapter", "bus:\n  adapter: ftdi\n", `unknown bus adapter "ftdi"`},
		{"unknown format", "sentence:\n  format: flarm\n", "unknown sentence kind"},
		{"address out of range", "eeprom:\n  address: 0x80\n", "eeprom address 0x80 outside the 7-bit range"},
		{"zero interval", "sentence:\n  interval: 0s\n", "sentence interval must be positive"},
		{"unknown thermometer", "sentence:\n  thermometer: ds18b20\n", `unknown thermometer "ds18b20"`},
		{"bad baud", "serial:\n  port: /dev/ttyS0\n  baud: 0\n", "baud rate must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sentence.Interval = Duration(750 * time.Millisecond)

	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: 750ms")

	loaded, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
