package sentence

import (
	"fmt"
	"math"
)

// LK8EX1 placeholders for values the variometer does not measure.
const (
	lk8NoPressure = 999999
	lk8NoBattery  = 999
)

// LK8 encodes `$LK8EX1,pressure,altitude,vario,temperature,battery*CS`.
// Altitude is in meters, vario in cm/s, temperature in degrees Celsius and battery
// in volts. Pressure is always reported as not available so LK8000 uses the
// altitude field.
type LK8 struct {
	buffer
}

func NewLK8() *LK8 {
	return &LK8{}
}

func (s *LK8) Begin(height, velocity, temperature, battery float64) {
	bat := fmt.Sprintf("%.2f", battery)
	if battery <= 0 {
		bat = fmt.Sprintf("%d", lk8NoBattery)
	}
	body := fmt.Sprintf("LK8EX1,%d,%d,%d,%d,%s",
		lk8NoPressure,
		int(math.Round(height)),
		int(math.Round(velocity*100)),
		int(math.Round(temperature)),
		bat,
	)
	s.reset(frame(body))
}
