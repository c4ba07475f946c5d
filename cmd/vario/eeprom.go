package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/vario/cmd/vario/console"
	"github.com/mklimuk/vario/memory/eeprom"
	"github.com/mklimuk/vario/vctx"
)

var eepromCmd = cli.Command{
	Name:    "eeprom",
	Aliases: []string{"mem"},
	Usage:   "read and write a two-wire EEPROM",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "device", Aliases: []string{"d"}, Usage: "device bus address (defaults to the configured one)"},
	},
	Subcommands: cli.Commands{
		&eepromReadCmd,
		&eepromWriteCmd,
	},
}

var eepromReadCmd = cli.Command{
	Name:  "read",
	Usage: "dump memory starting at an address",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Usage: "memory address", Required: true},
		&cli.IntFlag{Name: "length", Aliases: []string{"n"}, Usage: "number of bytes to read", Value: 16},
	},
	Action: func(c *cli.Context) error {
		ctx := vctx.SetVerbose(c.Context, c.Bool("verbose"))
		devAddr, err := deviceAddress(c)
		if err != nil {
			return err
		}
		memAddr, err := memoryAddress(c.Int("address"))
		if err != nil {
			return err
		}
		length := c.Int("length")
		if length <= 0 || length > 0xFFFF {
			return console.Exit(1, "length out of range: %s", console.Red(length))
		}
		bus, release, err := openBus(ctx, cfg.Bus)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		defer release()

		buf := make([]byte, length)
		err = eeprom.New(bus).ReadBufferAt(ctx, devAddr, memAddr, buf)
		if err != nil {
			return console.Exit(1, "read error: %s", console.Red(err))
		}
		console.PInfof(console.PictoMemory, "%s bytes from %s at %s", console.White(length), console.White(fmt.Sprintf("%#x", devAddr)), console.White(fmt.Sprintf("%#04x", memAddr)))
		console.Printf("%s", hex.Dump(buf))
		return nil
	},
}

var eepromWriteCmd = cli.Command{
	Name:  "write",
	Usage: "write hex bytes starting at an address",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Usage: "memory address", Required: true},
		&cli.StringFlag{Name: "data", Usage: "hex bytes to write (e.g. '01FF23')", Required: true},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		ctx := vctx.SetVerbose(c.Context, c.Bool("verbose"))
		devAddr, err := deviceAddress(c)
		if err != nil {
			return err
		}
		memAddr, err := memoryAddress(c.Int("address"))
		if err != nil {
			return err
		}
		data, err := parseHex(c.String("data"))
		if err != nil {
			return console.Exit(1, "invalid data: %s", console.Red(err))
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo(fmt.Sprintf("write %d bytes at %#04x on device %#x?", len(data), memAddr, devAddr))
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		bus, release, err := openBus(ctx, cfg.Bus)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		defer release()

		drv := eeprom.New(bus)
		if len(data) == 1 {
			err = drv.WriteByteAt(ctx, devAddr, memAddr, data[0])
		} else {
			err = drv.WriteBufferAt(ctx, devAddr, memAddr, data)
		}
		if err != nil {
			return console.Exit(1, "write error: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "wrote %s bytes at %s", console.Green(len(data)), console.White(fmt.Sprintf("%#04x", memAddr)))
		return nil
	},
}

func deviceAddress(c *cli.Context) (byte, error) {
	addr := cfg.EEPROM.Address
	if c.IsSet("device") {
		addr = c.Int("device")
	}
	if addr < 0x03 || addr > 0x77 {
		return 0, console.Exit(1, "device address out of range: %s", console.Red(fmt.Sprintf("%#x", addr)))
	}
	return byte(addr), nil
}

func memoryAddress(addr int) (uint16, error) {
	if addr < 0 || addr > 0xFFFF {
		return 0, console.Exit(1, "memory address out of range (0-0xFFFF): %s", console.Red(fmt.Sprintf("%#x", addr)))
	}
	return uint16(addr), nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("no data")
	}
	return hex.DecodeString(s)
}
