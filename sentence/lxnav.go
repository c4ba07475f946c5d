package sentence

import "fmt"

// LxNav encodes `$LXWP0,N,,altitude,vario,,,,,,,,*CS`: logger not running, no
// airspeed, altitude in meters and vario in m/s. The sentence carries no
// temperature or battery field, so those values are dropped.
type LxNav struct {
	buffer
}

func NewLxNav() *LxNav {
	return &LxNav{}
}

func (s *LxNav) Begin(height, velocity, temperature, battery float64) {
	body := fmt.Sprintf("LXWP0,N,,%.1f,%.2f,,,,,,,,", height, velocity)
	s.reset(frame(body))
}
