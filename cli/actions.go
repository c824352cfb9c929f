package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/arduinohub/components/arduino"
	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/config"
	"go.viam.com/arduinohub/logging"
	"go.viam.com/arduinohub/robot"
	"go.viam.com/arduinohub/utils/stacktrace"
)

// RunAction runs the hub until SIGINT or SIGTERM.
func RunAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()

	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	config.InitLoggingSettings(logger, c.Bool(debugFlag))
	config.UpdateFileConfigDebug(cfg.Debug)

	dumps, stopStackDumps := stacktrace.NewSignalHandler(logger)
	defer stopStackDumps()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := robot.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	dumps.SetCallback(r.LogStatus)
	<-ctx.Done()
	logger.Info("shutting down")
	return r.Close(context.Background())
}

// ValidateAction reads and validates the configuration.
func ValidateAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()

	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "configuration is valid: %d devices, %d components", len(cfg.Arduino.Devices), len(cfg.Components))
	return nil
}

// TypesAction lists the board types and component types that can be configured.
func TypesAction(c *cli.Context) error {
	printf(c.App.Writer, "board types:")
	for _, t := range []board.Type{board.TypeStandard, board.TypeMega, board.TypeDue} {
		layout, err := board.LayoutFor(t)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "  %s\t%d digital, %d analog, pwm on %v", t, layout.DigitalPins, layout.AnalogPins, layout.PWMPins)
	}
	printf(c.App.Writer, "component types:")
	for _, t := range arduino.RegisteredTypes() {
		printf(c.App.Writer, "  %s", t)
	}
	return nil
}

func readConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.String(configFlag)
	if path == "" {
		cfg := &config.Config{}
		if err := cfg.Ensure(); err != nil {
			return nil, err
		}
		logger.Infow("no config file given, using defaults", "devices", cfg.Arduino.Devices)
		return cfg, nil
	}
	cfg, err := config.Read(c.Context, path, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", path)
	}
	return cfg, nil
}

func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("arduinohub")
	if !c.Bool(debugFlag) {
		logger.SetLevel(logging.INFO)
	}
	logFile := c.String(logFileFlag)
	if logFile == "" {
		logger.AddAppender(logging.NewWriterAppender(c.App.Writer))
		return logger, func() {}
	}
	appender, closer := logging.NewFileAppender(logFile)
	logger.AddAppender(appender)
	return logger, func() {
		if err := logger.Sync(); err != nil {
			printf(c.App.ErrWriter, "failed to flush logs: %v", err)
		}
		if err := closer.Close(); err != nil {
			printf(c.App.ErrWriter, "failed to close log file: %v", err)
		}
	}
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
