// Package cli contains the arduinohub command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag  = "config"
	debugFlag   = "debug"
	logFileFlag = "log-file"
)

// NewApp returns the arduinohub application writing to the given outputs. Without a command it
// runs the hub.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "arduinohub",
		Usage:           "run Firmata boards on serial links and bind their pins to sensors and actuators",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  logFileFlag,
				Usage: "write logs to `FILE` instead of stdout, rotating it as it grows",
			},
		},
		Action: RunAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "open the configured boards and run until interrupted",
				Action: RunAction,
			},
			{
				Name:   "validate",
				Usage:  "read and validate the configuration, then exit",
				Action: ValidateAction,
			},
			{
				Name:   "types",
				Usage:  "list supported board and component types",
				Action: TypesAction,
			},
		},
	}
}
