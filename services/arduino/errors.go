package arduino

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfigurationMismatch is returned by New when the device, type and sampling interval
	// lists differ in length. No board is opened in that case.
	ErrConfigurationMismatch = errors.New("devices, types and sampling intervals must have the same length")

	// ErrActuatorNotConfigured is returned by ChangeDigital for a pin that was never set up, or
	// that was cleaned up.
	ErrActuatorNotConfigured = errors.New("actuator not configured")

	// ErrUnknownDevice is returned for a device index outside the configured list.
	ErrUnknownDevice = errors.New("unknown device index")
)

// A PollerFault reports that the poller of one board stopped on an unexpected error. The board
// stays open but no further samples are read from it.
type PollerFault struct {
	Device int
	Path   string
	Err    error
	// Stacks is a dump of all goroutines taken when the fault was detected.
	Stacks string
}

func (f PollerFault) Error() string {
	return fmt.Sprintf("poller for device %d (%s) stopped: %v", f.Device, f.Path, f.Err)
}

func (f PollerFault) Unwrap() error {
	return f.Err
}

func newUnknownDeviceError(device, count int) error {
	return errors.Wrapf(ErrUnknownDevice, "device %d, have %d", device, count)
}

func newNotConfiguredError(device, pin int) error {
	return errors.Wrapf(ErrActuatorNotConfigured, "device %d pin %d", device, pin)
}
