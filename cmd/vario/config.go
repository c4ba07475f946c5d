package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/vario/cmd/vario/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "configuration helpers",
	Subcommands: cli.Commands{
		{
			Name:  "show",
			Usage: "print the effective configuration",
			Action: func(c *cli.Context) error {
				data, err := cfg.Encode()
				if err != nil {
					return console.Exit(1, "encoding error: %s", console.Red(err))
				}
				console.Print(strings.TrimRight(string(data), "\n"))
				return nil
			},
		},
	},
}
