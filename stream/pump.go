// Package stream runs the control loop that feeds telemetry into a sentence
// multiplexer and pushes the encoded sentences to an output such as a serial port.
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mklimuk/vario/sentence"
	"github.com/mklimuk/vario/telemetry"
)

// DefaultPollPeriod is how often the interval gate is checked.
const DefaultPollPeriod = 50 * time.Millisecond

type PumpOpts struct {
	Clock      clock.Clock
	PollPeriod time.Duration
	// Limit stops Run after that many sentences; zero means no limit.
	Limit int
	Log   *slog.Logger
}

type PumpOpt func(*PumpOpts)

// WithClock sets the clock driving the poll ticker. It should be the one given to
// the multiplexer.
func WithClock(c clock.Clock) PumpOpt {
	return func(o *PumpOpts) {
		o.Clock = c
	}
}

func WithPollPeriod(period time.Duration) PumpOpt {
	return func(o *PumpOpts) {
		o.PollPeriod = period
	}
}

func WithLimit(n int) PumpOpt {
	return func(o *PumpOpts) {
		o.Limit = n
	}
}

func WithLogger(log *slog.Logger) PumpOpt {
	return func(o *PumpOpts) {
		o.Log = log
	}
}

type Pump struct {
	config  PumpOpts
	mux     *sentence.Multiplexer
	source  telemetry.Source
	out     io.Writer
	emitted int
}

func NewPump(mux *sentence.Multiplexer, source telemetry.Source, out io.Writer, opts ...PumpOpt) *Pump {
	config := PumpOpts{
		Clock:      clock.New(),
		PollPeriod: DefaultPollPeriod,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Log == nil {
		config.Log = slog.Default().With("component", "stream", "format", mux.Kind().String())
	}
	return &Pump{
		config: config,
		mux:    mux,
		source: source,
		out:    out,
	}
}

// Emitted returns the number of sentences written so far.
func (p *Pump) Emitted() int {
	return p.emitted
}

// Step runs one iteration of the loop and reports whether a sentence was written.
// A failed telemetry read or an empty encoding skips the sentence; a failed write is
// returned.
func (p *Pump) Step(ctx context.Context) (bool, error) {
	if !p.mux.CheckInterval() {
		return false, nil
	}
	s, err := p.source.Sample(ctx)
	if err != nil {
		p.config.Log.Warn("skipping sentence, telemetry not available", "error", err)
		return false, nil
	}
	p.mux.Begin(s.Height, s.Velocity, s.Temperature, s.Battery)
	n, err := p.mux.WriteTo(p.out)
	if err != nil {
		return false, fmt.Errorf("stream: %w", err)
	}
	if n == 0 {
		p.config.Log.Warn("encoder produced no sentence")
		return false, nil
	}
	p.emitted++
	p.config.Log.Debug("sentence written", "bytes", n, "count", p.emitted)
	return true, nil
}

// Run polls until ctx is done, the configured limit is reached or a write fails.
func (p *Pump) Run(ctx context.Context) error {
	ticker := p.config.Clock.Ticker(p.config.PollPeriod)
	defer ticker.Stop()
	for {
		if p.config.Limit > 0 && p.emitted >= p.config.Limit {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Step(ctx); err != nil {
				return err
			}
		}
	}
}
