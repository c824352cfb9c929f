package arduino

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/components/board/firmata"
	"go.viam.com/arduinohub/logging"
	"go.viam.com/arduinohub/serial"
)

// maxSamplingMillis is the largest interval that fits the two 7-bit bytes of the sampling sysex.
const maxSamplingMillis = 1<<14 - 1

// Config lists the boards to manage. The three lists are parallel: index i of each describes
// device i.
type Config struct {
	Devices        []string
	Types          []board.Type
	SamplingMillis []int
}

// Validate checks that the lists line up and the intervals can be sent to a board.
func (cfg Config) Validate() error {
	if len(cfg.Devices) != len(cfg.Types) || len(cfg.Devices) != len(cfg.SamplingMillis) {
		return errors.Wrapf(ErrConfigurationMismatch, "got %d devices, %d types, %d sampling intervals",
			len(cfg.Devices), len(cfg.Types), len(cfg.SamplingMillis))
	}
	for idx, ms := range cfg.SamplingMillis {
		if ms <= 0 || ms > maxSamplingMillis {
			return errors.Errorf("sampling interval of device %d must be in [1, %d]ms, got %d", idx, maxSamplingMillis, ms)
		}
	}
	return nil
}

// An Opener connects to the board at path. Errors matching serial.ErrUnavailable leave the device
// absent; any other error aborts startup.
type Opener func(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error)

// An Option changes how New builds the service.
type Option func(*options)

type options struct {
	opener      Opener
	accessCheck func(path string) error
}

// WithOpener sets the function used to open boards.
func WithOpener(opener Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithoutAccessCheck skips checking that device paths are readable before opening them. Useful
// with openers that do not touch the filesystem.
func WithoutAccessCheck() Option {
	return func(o *options) {
		o.accessCheck = func(string) error { return nil }
	}
}

func defaultOptions() options {
	return options{
		opener:      firmata.Open,
		accessCheck: serial.CheckReadable,
	}
}
