// Package serial opens serial devices and classifies open failures into "device unavailable"
// (missing or unreadable) versus everything else.
package serial

import (
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/pkg/errors"
	ser "go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// ErrUnavailable is matched (via errors.Is) by open failures caused by a missing device or
// insufficient permissions.
var ErrUnavailable = errors.New("serial device unavailable")

// Options to be passed to Open(), closely mirrors ser.Mode.
type Options struct {
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity
	// ReadTimeout bounds each Read. Zero blocks until data arrives.
	ReadTimeout time.Duration
}

// Parity describes a serial port parity setting.
type Parity int

const (
	// NoParity disable parity control (default).
	NoParity Parity = iota
	// OddParity enable odd-parity check.
	OddParity
	// EvenParity enable even-parity check.
	EvenParity
)

// StopBits describe a serial port stop bits setting.
type StopBits int

const (
	// OneStopBit sets 1 stop bit (default).
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits.
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits.
	TwoStopBits
)

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Open attempts to open a serial device on the given path. It's a variable in case you need to
// override it during tests.
var Open = func(devicePath string, options Options) (Port, error) {
	dataBits := options.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		Parity:   ser.Parity(options.Parity),
		DataBits: dataBits,
		StopBits: ser.StopBits(options.StopBits),
	}

	port, err := ser.Open(devicePath, mode)
	if err != nil {
		return nil, Classify(devicePath, err)
	}
	if options.ReadTimeout > 0 {
		if err := port.SetReadTimeout(options.ReadTimeout); err != nil {
			return nil, errors.Wrapf(err, "cannot set read timeout on %s", devicePath)
		}
	}
	return port, nil
}

// CheckReadable reports whether the current process may read the device at path. Failures are
// classified like Open failures.
func CheckReadable(path string) error {
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Classify(path, err)
	}
	return nil
}

// IsUnavailable returns whether err denotes a missing or unreadable device.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Classify wraps err such that it matches ErrUnavailable when it denotes a missing device or a
// permission problem. Other errors are returned annotated with the path only.
func Classify(path string, err error) error {
	if err == nil {
		return nil
	}
	if unavailable(err) {
		return &unavailableError{path: path, err: err}
	}
	return errors.Wrapf(err, "cannot open serial device %s", path)
}

func unavailable(err error) bool {
	var portErr *ser.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case ser.PortNotFound, ser.PermissionDenied:
			return true
		default:
		}
	}
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, unix.ENODEV) ||
		errors.Is(err, unix.ENXIO)
}

type unavailableError struct {
	path string
	err  error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("serial device %s is not available: %v", e.path, e.err)
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.err
}
