// Package telemetry gathers the values a vario sentence reports: altitude, climb
// rate, temperature and battery voltage.
package telemetry

import (
	"context"
	"fmt"
)

// Sample is a single set of readings.
type Sample struct {
	Height      float64 `yaml:"height"`      // meters
	Velocity    float64 `yaml:"velocity"`    // m/s, positive when climbing
	Temperature float64 `yaml:"temperature"` // degrees Celsius
	Battery     float64 `yaml:"battery"`     // volts
}

type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// Thermometer is implemented by temperature sensors such as TC74.
type Thermometer interface {
	GetTemperature(ctx context.Context) (float32, error)
}

// Static always returns the same sample.
type Static Sample

func (s Static) Sample(ctx context.Context) (Sample, error) {
	return Sample(s), nil
}

type thermometerSource struct {
	base  Source
	therm Thermometer
}

// WithThermometer returns a source reporting the base sample with the temperature
// replaced by a live reading.
func WithThermometer(base Source, therm Thermometer) Source {
	return &thermometerSource{base: base, therm: therm}
}

func (s *thermometerSource) Sample(ctx context.Context) (Sample, error) {
	sample, err := s.base.Sample(ctx)
	if err != nil {
		return Sample{}, err
	}
	temp, err := s.therm.GetTemperature(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("could not read temperature: %w", err)
	}
	sample.Temperature = float64(temp)
	return sample, nil
}
