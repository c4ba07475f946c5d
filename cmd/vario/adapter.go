package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/vario/adapter"
	"github.com/mklimuk/vario/cmd/vario/console"
	"github.com/mklimuk/vario/vctx"
)

var adapterCmd = cli.Command{
	Name:  "adapter",
	Usage: "MCP2221 USB to I2C bridge diagnostics",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "index", Usage: "device index when several bridges are connected"},
	},
	Subcommands: cli.Commands{
		&adapterLsCmd,
		&adapterStatusCmd,
		&adapterReleaseCmd,
	},
}

var adapterLsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "INDEX\tPATH\tSERIAL\tMANUFACTURER\tPRODUCT\n")
		for i, dev := range adapter.ListDevices() {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, dev.Path, dev.Serial, dev.Manufacturer, dev.Product)
		}
		_ = w.Flush()
		return nil
	},
}

var adapterStatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDeviceIndex(c.Int("index")))
		defer func() { _ = a.Close() }()
		status, err := a.Status(vctx.SetVerbose(c.Context, c.Bool("verbose")))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return dumpYAML(status)
	},
}

var adapterReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the pending transfer and free the bus",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDeviceIndex(c.Int("index")))
		defer func() { _ = a.Close() }()
		status, err := a.ReleaseBus(vctx.SetVerbose(c.Context, c.Bool("verbose")))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return dumpYAML(status)
	},
}

func dumpYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
