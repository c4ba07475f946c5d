package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mklimuk/vario/config"
)

var version string
var commit string
var date string

// cfg is loaded in the app Before hook and then overridden by command flags.
var cfg = config.Default()

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "vario"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "variometer bench tool: EEPROM access and flight computer sentences"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"VARIO_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "also write logs to a rotated file",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "bus adapter: generic, nanopi, mcp2221 or simulated",
		},
		&cli.StringFlag{
			Name:  "i2c-device",
			Usage: "i2c device used by the generic adapter",
		},
	}
	var logFile io.Closer
	app.Before = func(c *cli.Context) error {
		loaded, err := config.Load(c.String("config"))
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		cfg = loaded
		if c.IsSet("adapter") {
			cfg.Bus.Adapter = c.String("adapter")
		}
		if c.IsSet("i2c-device") {
			cfg.Bus.Device = c.String("i2c-device")
		}
		if c.IsSet("log-file") {
			cfg.Log.File = c.String("log-file")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		var out io.Writer = os.Stderr
		profile := termenv.TrueColor
		if cfg.Log.File != "" {
			rotated := &lumberjack.Logger{
				Filename:   cfg.Log.File,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			}
			logFile = rotated
			out = io.MultiWriter(os.Stderr, rotated)
			profile = termenv.Ascii
		}
		// stdout carries sentences and dumps, so logs go to stderr
		charm := chlog.NewWithOptions(out, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(profile)
		charm.SetLevel(chlog.InfoLevel)
		if c.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.After = func(c *cli.Context) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}
	app.Commands = cli.Commands{
		&eepromCmd,
		&sentenceCmd,
		&adapterCmd,
		&configCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		log.Printf("unexpected error: %v", err)
		return 1
	}
	return 0
}
