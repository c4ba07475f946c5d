// Package config holds the vario tool configuration, read from a YAML file and
// overridden by command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/vario/sentence"
	"github.com/mklimuk/vario/telemetry"
)

var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

type Bus struct {
	// Adapter is one of "generic" (periph.io i2c-dev), "nanopi" (gobot), "mcp2221"
	// or "simulated" (in-memory EEPROM and TC74, no hardware).
	Adapter string `yaml:"adapter"`
	Device  string `yaml:"device"`
	// SpeedKHz is applied by the generic and mcp2221 adapters; zero keeps the default.
	SpeedKHz int `yaml:"speed_khz"`
	// GobotBus is the bus number used by the nanopi adapter.
	GobotBus int `yaml:"gobot_bus"`
	// Image persists the simulated EEPROM between runs; empty keeps it in memory.
	Image string `yaml:"image"`
}

type EEPROM struct {
	Address int `yaml:"address"`
}

type Sentence struct {
	Format     string   `yaml:"format"`
	Interval   Duration `yaml:"interval"`
	PollPeriod Duration `yaml:"poll_period"`
	// Thermometer is "tc74" or empty for the static temperature.
	Thermometer string           `yaml:"thermometer"`
	Static      telemetry.Sample `yaml:"static"`
}

type Serial struct {
	// Port is the serial device sentences are written to; empty means stdout.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type Log struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type Config struct {
	Bus      Bus      `yaml:"bus"`
	EEPROM   EEPROM   `yaml:"eeprom"`
	Sentence Sentence `yaml:"sentence"`
	Serial   Serial   `yaml:"serial"`
	Log      Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		Bus: Bus{
			Adapter:  "generic",
			Device:   "/dev/i2c-1",
			GobotBus: 0,
		},
		EEPROM: EEPROM{
			Address: 0x50,
		},
		Sentence: Sentence{
			Format:     "lk8",
			Interval:   Duration(sentence.DefaultInterval),
			PollPeriod: Duration(50 * time.Millisecond),
			Static: telemetry.Sample{
				Temperature: 20,
			},
		},
		Serial: Serial{
			Baud: 9600,
		},
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Bus.Adapter {
	case "generic", "nanopi", "mcp2221", "simulated":
	default:
		return fmt.Errorf("%w: unknown bus adapter %q", ErrInvalid, c.Bus.Adapter)
	}
	if c.EEPROM.Address < 0x03 || c.EEPROM.Address > 0x77 {
		return fmt.Errorf("%w: eeprom address %#x outside the 7-bit range", ErrInvalid, c.EEPROM.Address)
	}
	if _, err := sentence.ParseKind(c.Sentence.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Sentence.Interval <= 0 {
		return fmt.Errorf("%w: sentence interval must be positive", ErrInvalid)
	}
	if c.Sentence.PollPeriod <= 0 {
		return fmt.Errorf("%w: poll period must be positive", ErrInvalid)
	}
	switch c.Sentence.Thermometer {
	case "", "tc74":
	default:
		return fmt.Errorf("%w: unknown thermometer %q", ErrInvalid, c.Sentence.Thermometer)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalid)
	}
	return nil
}

// Kind returns the configured sentence format.
func (c Config) Kind() sentence.Kind {
	k, err := sentence.ParseKind(c.Sentence.Format)
	if err != nil {
		return sentence.KindLK8
	}
	return k
}

// Encode writes the configuration as YAML.
func (c Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}
