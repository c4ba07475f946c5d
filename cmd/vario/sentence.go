package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.bug.st/serial"

	"github.com/mklimuk/vario/cmd/vario/console"
	"github.com/mklimuk/vario/config"
	"github.com/mklimuk/vario/sentence"
	"github.com/mklimuk/vario/stream"
	"github.com/mklimuk/vario/telemetry"
	"github.com/mklimuk/vario/vctx"
)

var sentenceCmd = cli.Command{
	Name:  "sentence",
	Usage: "encode flight computer sentences (LK8EX1, LXWP0)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "lk8 or lxnav (defaults to the configured one)"},
		&cli.Float64Flag{Name: "height", Usage: "barometric height in meters"},
		&cli.Float64Flag{Name: "velocity", Usage: "vertical speed in m/s"},
		&cli.Float64Flag{Name: "temperature", Usage: "temperature in degrees Celsius"},
		&cli.Float64Flag{Name: "battery", Usage: "battery voltage"},
	},
	Subcommands: cli.Commands{
		&sentenceEncodeCmd,
		&sentenceStreamCmd,
	},
}

var sentenceEncodeCmd = cli.Command{
	Name:  "encode",
	Usage: "print a single sentence",
	Action: func(c *cli.Context) error {
		if err := applySentenceFlags(c); err != nil {
			return err
		}
		s := cfg.Sentence.Static
		mux := sentence.NewMultiplexer(cfg.Kind())
		mux.Begin(s.Height, s.Velocity, s.Temperature, s.Battery)
		if _, err := mux.WriteTo(os.Stdout); err != nil {
			return console.Exit(1, "output error: %s", console.Red(err))
		}
		return nil
	},
}

var sentenceStreamCmd = cli.Command{
	Name:  "stream",
	Usage: "emit sentences at the configured interval until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "serial port (stdout when empty)"},
		&cli.IntFlag{Name: "baud", Usage: "serial baud rate"},
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Usage: "minimum time between sentences"},
		&cli.StringFlag{Name: "thermometer", Usage: "read temperature from a sensor: tc74"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "stop after that many sentences"},
	},
	Action: func(c *cli.Context) error {
		if err := applySentenceFlags(c); err != nil {
			return err
		}
		if c.IsSet("port") {
			cfg.Serial.Port = c.String("port")
		}
		if c.IsSet("baud") {
			cfg.Serial.Baud = c.Int("baud")
		}
		if c.IsSet("interval") {
			cfg.Sentence.Interval = config.Duration(c.Duration("interval"))
		}
		if c.IsSet("thermometer") {
			cfg.Sentence.Thermometer = c.String("thermometer")
		}
		if err := cfg.Validate(); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = vctx.SetVerbose(ctx, c.Bool("verbose"))

		out, closeOut, err := openOutput(cfg.Serial)
		if err != nil {
			return console.Exit(1, "output error: %s", console.Red(err))
		}
		defer closeOut()

		source, release, err := telemetrySource(ctx)
		if err != nil {
			return console.Exit(1, "telemetry error: %s", console.Red(err))
		}
		defer release()

		mux := sentence.NewMultiplexer(cfg.Kind(), sentence.WithInterval(time.Duration(cfg.Sentence.Interval)))
		pump := stream.NewPump(mux, source, out,
			stream.WithPollPeriod(time.Duration(cfg.Sentence.PollPeriod)),
			stream.WithLimit(c.Int("count")),
		)
		console.PInfof(console.PictoSatellite, "streaming %s every %s", console.White(mux.Kind()), console.White(time.Duration(cfg.Sentence.Interval)))
		if cfg.Sentence.Thermometer != "" {
			console.PInfof(console.PictoThermometer, "temperature from %s on the %s bus", console.White(cfg.Sentence.Thermometer), console.White(cfg.Bus.Adapter))
		}
		if err := pump.Run(ctx); err != nil {
			return console.Exit(1, "stream error: %s", console.Red(err))
		}
		if pump.Emitted() == 0 {
			console.Warnf("stopped before any sentence was written")
			return nil
		}
		console.PInfof(console.PictoFinish, "%s sentences written", console.Green(pump.Emitted()))
		return nil
	},
}

func applySentenceFlags(c *cli.Context) error {
	if c.IsSet("format") {
		cfg.Sentence.Format = c.String("format")
		if _, err := sentence.ParseKind(cfg.Sentence.Format); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
	}
	if c.IsSet("height") {
		cfg.Sentence.Static.Height = c.Float64("height")
	}
	if c.IsSet("velocity") {
		cfg.Sentence.Static.Velocity = c.Float64("velocity")
	}
	if c.IsSet("temperature") {
		cfg.Sentence.Static.Temperature = c.Float64("temperature")
	}
	if c.IsSet("battery") {
		cfg.Sentence.Static.Battery = c.Float64("battery")
	}
	return nil
}

func openOutput(s config.Serial) (io.Writer, func(), error) {
	if s.Port == "" {
		return os.Stdout, func() {}, nil
	}
	mode := &serial.Mode{
		BaudRate: s.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.Port, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open port %s: %w", s.Port, err)
	}
	slog.Debug("serial port opened", "port", s.Port, "baud", s.Baud)
	return port, func() {
		if err := port.Close(); err != nil {
			slog.Error("error closing serial port", "port", s.Port, "error", err)
		}
	}, nil
}

func telemetrySource(ctx context.Context) (telemetry.Source, func(), error) {
	static := telemetry.Static(cfg.Sentence.Static)
	if cfg.Sentence.Thermometer != "tc74" {
		return static, func() {}, nil
	}
	bus, release, err := openBus(ctx, cfg.Bus)
	if err != nil {
		return nil, nil, err
	}
	return telemetry.WithThermometer(static, telemetry.NewTC74(bus)), release, nil
}
