package sentence

import (
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultInterval is the minimum time between two emitted sentences.
const DefaultInterval = 500 * time.Millisecond

type MultiplexerOpts struct {
	Clock    clock.Clock
	Interval time.Duration
	LK8      Sentence
	LxNav    Sentence
}

type MultiplexerOpt func(*MultiplexerOpts)

func WithClock(c clock.Clock) MultiplexerOpt {
	return func(o *MultiplexerOpts) {
		o.Clock = c
	}
}

func WithInterval(interval time.Duration) MultiplexerOpt {
	return func(o *MultiplexerOpts) {
		o.Interval = interval
	}
}

// WithLK8 replaces the LK8EX1 encoder bound for KindLK8.
func WithLK8(s Sentence) MultiplexerOpt {
	return func(o *MultiplexerOpts) {
		o.LK8 = s
	}
}

// WithLxNav replaces the LXWP0 encoder bound for every other kind.
func WithLxNav(s Sentence) MultiplexerOpt {
	return func(o *MultiplexerOpts) {
		o.LxNav = s
	}
}

// Multiplexer binds, once and for its whole lifetime, to one of the two sentence
// formats and forwards polling calls to it. It also gates output with an interval
// check. It is meant to be polled from a single control loop and does no locking.
//
// Typical usage:
//
//	m := NewMultiplexer(KindLK8)
//	for {
//		if m.CheckInterval() {
//			m.Begin(alt, vz, temp, bat)
//			_, _ = m.WriteTo(port)
//		}
//	}
type Multiplexer struct {
	kind     Kind
	sentence Sentence
	clock    clock.Clock
	interval time.Duration
	lastTick time.Time
}

// NewMultiplexer binds to the LK8EX1 encoder when kind is KindLK8 and to the LXWP0
// encoder otherwise.
func NewMultiplexer(kind Kind, opts ...MultiplexerOpt) *Multiplexer {
	config := MultiplexerOpts{
		Clock:    clock.New(),
		Interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(&config)
	}
	m := &Multiplexer{
		kind:     kind,
		clock:    config.Clock,
		interval: config.Interval,
	}
	if kind == KindLK8 {
		m.sentence = config.LK8
		if m.sentence == nil {
			m.sentence = NewLK8()
		}
	} else {
		m.sentence = config.LxNav
		if m.sentence == nil {
			m.sentence = NewLxNav()
		}
	}
	m.lastTick = m.clock.Now()
	return m
}

func (m *Multiplexer) Kind() Kind {
	return m.kind
}

func (m *Multiplexer) Begin(height, velocity, temperature, battery float64) {
	m.sentence.Begin(height, velocity, temperature, battery)
}

func (m *Multiplexer) Available() int {
	return m.sentence.Available()
}

// Read returns the next encoded byte or NoData.
func (m *Multiplexer) Read() int {
	return m.sentence.Read()
}

// CheckInterval reports whether more than the configured interval has passed since
// the last time it returned true (or since construction). Only a true result moves
// the baseline.
func (m *Multiplexer) CheckInterval() bool {
	now := m.clock.Now()
	if now.Sub(m.lastTick) > m.interval {
		m.lastTick = now
		return true
	}
	return false
}

// WriteTo drains every available byte into w with a single write.
func (m *Multiplexer) WriteTo(w io.Writer) (int64, error) {
	n := m.sentence.Available()
	if n <= 0 {
		return 0, nil
	}
	out := make([]byte, 0, n)
	for range n {
		c := m.sentence.Read()
		if c == NoData {
			break
		}
		out = append(out, byte(c))
	}
	written, err := w.Write(out)
	if err != nil {
		return int64(written), fmt.Errorf("could not write %s sentence: %w", m.kind, err)
	}
	return int64(written), nil
}
