// Package board defines the interfaces a microcontroller board driver exposes: pin acquisition by
// typed descriptor, sysex/servo configuration, and a blocking Iterate step that consumes incoming
// samples and fires pin change callbacks.
package board

import (
	"context"

	"github.com/pkg/errors"
)

// Sysex commands understood by every supported board.
const (
	SysexServoConfig      byte = 0x70
	SysexStringData       byte = 0x71
	SysexReportFirmware   byte = 0x79
	SysexSamplingInterval byte = 0x7A
)

// Default servo pulse range in microseconds.
const (
	DefaultServoMinPulse = 544
	DefaultServoMaxPulse = 2400
)

var (
	// ErrInvalidPin is returned when a descriptor names a pin the board does not have or that is
	// reserved (e.g. the serial RX/TX pins).
	ErrInvalidPin = errors.New("invalid pin")
	// ErrUnsupportedMode is returned when a pin cannot operate in the requested mode.
	ErrUnsupportedMode = errors.New("unsupported pin mode")
	// ErrInvalidValue is returned by Pin.Write when the value does not suit the pin's mode.
	ErrInvalidValue = errors.New("invalid value for pin mode")
	// ErrClosed is returned by operations on a board after Close.
	ErrClosed = errors.New("board is closed")
)

// A Board is a connected microcontroller.
//
// Pin and the write side of every method may be called concurrently with Iterate. Drivers are
// responsible for keeping their serial channel consistent under that interleaving.
type Board interface {
	// Pin acquires the pin named by desc, configuring the board for desc.Mode. Acquiring the same
	// pin again returns the same Pin reconfigured to the new mode.
	Pin(ctx context.Context, desc PinDescriptor) (Pin, error)

	// SendSysex sends a sysex command with the given (already 7-bit encoded) payload.
	SendSysex(ctx context.Context, command byte, payload []byte) error

	// ServoConfig sets the pulse range of a servo pin and moves it to angle.
	ServoConfig(ctx context.Context, pin, minPulse, maxPulse, angle int) error

	// Iterate blocks until input arrives, a driver specific timeout elapses, or ctx is done. All
	// complete messages read are applied to pin values; changed pins fire their callbacks on the
	// calling goroutine before Iterate returns. A nil error with no message is valid.
	Iterate(ctx context.Context) error

	// Close releases the serial channel. Iterate returns ErrClosed afterwards.
	Close(ctx context.Context) error
}

// ToTwoBytes splits a 14-bit value into the LSB-first pair of 7-bit bytes used in sysex payloads.
func ToTwoBytes(value int) []byte {
	return []byte{byte(value & 0x7F), byte((value >> 7) & 0x7F)}
}

// FromTwoBytes is the inverse of ToTwoBytes.
func FromTwoBytes(lsb, msb byte) int {
	return int(lsb&0x7F) | int(msb&0x7F)<<7
}
