package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/vario"
	"github.com/mklimuk/vario/adapter"
	"github.com/mklimuk/vario/cmd/vario/console"
	"github.com/mklimuk/vario/config"
	"github.com/mklimuk/vario/i2c"
	"github.com/mklimuk/vario/memory/eeprom"
	"github.com/mklimuk/vario/telemetry"
)

// openBus returns the configured bus and a function releasing it.
func openBus(ctx context.Context, b config.Bus) (vario.I2CBus, func(), error) {
	switch b.Adapter {
	case "generic":
		bus, err := i2c.NewGenericBus(b.Device)
		if err != nil {
			return nil, nil, err
		}
		if b.SpeedKHz > 0 {
			if err := bus.SetSpeed(physic.Frequency(b.SpeedKHz) * physic.KiloHertz); err != nil {
				_ = bus.Close()
				return nil, nil, err
			}
		}
		return bus, func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := i2c.NewGobotBus(npi, i2c.WithBusNumber(b.GobotBus))
		return bus, func() {
			err := errors.Join(bus.Release(ctx), npi.I2cBusAdaptor.Finalize())
			if err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}, nil
	case "mcp2221":
		ad := adapter.NewMCP2221()
		if err := ad.Init(); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if b.SpeedKHz > 0 {
			if err := ad.SetSpeed(ctx, b.SpeedKHz); err != nil {
				_ = ad.Close()
				return nil, nil, err
			}
		}
		return ad, func() {
			if err := ad.Close(); err != nil {
				console.Errorf("error closing adapter: %s", console.Red(err))
			}
		}, nil
	case "simulated":
		bus, save, err := newSimulatedBus(b.Image, byte(cfg.EEPROM.Address), cfg.Sentence.Static.Temperature)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() {
			if err := save(); err != nil {
				console.Errorf("error saving simulated memory: %s", console.Red(err))
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown bus adapter %q", config.ErrInvalid, b.Adapter)
}

// newSimulatedBus attaches an EEPROM at eepromAddr, loaded from image when the file
// exists, and a TC74 reporting temperature. save writes the EEPROM back to image.
func newSimulatedBus(image string, eepromAddr byte, temperature float64) (*eeprom.SimulatedBus, func() error, error) {
	bus := eeprom.NewSimulatedBus()
	mem := bus.AddDevice(eepromAddr, 0)
	if image != "" {
		data, err := os.ReadFile(image)
		switch {
		case err == nil:
			mem.Load(data)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, nil, fmt.Errorf("could not read memory image: %w", err)
		}
	}
	temp := math.Max(math.Min(math.Round(temperature), math.MaxInt8), math.MinInt8)
	// temperature register, then config register with data ready set
	bus.AddRegisterDevice(telemetry.TC74DefaultAddress, []byte{byte(int8(temp)), 0x40})
	save := func() error {
		if image == "" {
			return nil
		}
		if err := os.WriteFile(image, mem.Bytes(), 0o644); err != nil {
			return fmt.Errorf("could not write memory image: %w", err)
		}
		return nil
	}
	return bus, save, nil
}
