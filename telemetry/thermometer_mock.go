package telemetry

import (
	"context"
)

// TemperatureBehaviorFunc defines the function signature for temperature behavior.
// It returns the temperature in Celsius or an error.
type TemperatureBehaviorFunc func(ctx context.Context) (float32, error)

// MockThermometer is a Thermometer driven by a behavior function, for running the
// sentence output without a sensor on the bus.
//
// Example usage:
//
//	therm := NewMockThermometer(func(ctx context.Context) (float32, error) { return 18.5, nil })
//	src := WithThermometer(Static{Height: 1200}, therm)
type MockThermometer struct {
	behavior TemperatureBehaviorFunc
}

func NewMockThermometer(behavior TemperatureBehaviorFunc) *MockThermometer {
	return &MockThermometer{behavior: behavior}
}

func (m *MockThermometer) GetTemperature(ctx context.Context) (float32, error) {
	return m.behavior(ctx)
}
