package board

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// PinKind tells digital pins from analog input channels.
type PinKind int

// The known pin kinds.
const (
	Digital PinKind = iota
	Analog
)

func (k PinKind) String() string {
	switch k {
	case Digital:
		return "d"
	case Analog:
		return "a"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PinMode is the direction/signal mode a pin is acquired in.
type PinMode int

// The known pin modes.
const (
	ModeInput PinMode = iota
	ModeOutput
	ModePWM
	ModeServo
)

func (m PinMode) String() string {
	switch m {
	case ModeInput:
		return "i"
	case ModeOutput:
		return "o"
	case ModePWM:
		return "p"
	case ModeServo:
		return "s"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// A PinDescriptor names one pin on a board and the mode it is wanted in.
type PinDescriptor struct {
	Kind   PinKind
	Number int
	Mode   PinMode
}

// String renders the descriptor in the "<kind>:<number>:<mode>" form, e.g. "d:13:o".
func (d PinDescriptor) String() string {
	return fmt.Sprintf("%s:%d:%s", d.Kind, d.Number, d.Mode)
}

// Validate checks the combination of kind and mode. Analog channels are input only.
func (d PinDescriptor) Validate() error {
	if d.Number < 0 {
		return errors.Wrapf(ErrInvalidPin, "negative pin number in %s", d)
	}
	switch d.Kind {
	case Analog:
		if d.Mode != ModeInput {
			return errors.Wrapf(ErrUnsupportedMode, "analog pins are input only, got %s", d)
		}
	case Digital:
		if d.Mode < ModeInput || d.Mode > ModeServo {
			return errors.Wrapf(ErrUnsupportedMode, "%s", d)
		}
	default:
		return errors.Wrapf(ErrInvalidPin, "unknown kind in %s", d)
	}
	return nil
}

// DigitalOutput describes a digital output pin.
func DigitalOutput(number int) PinDescriptor {
	return PinDescriptor{Kind: Digital, Number: number, Mode: ModeOutput}
}

// DigitalInput describes a digital input pin.
func DigitalInput(number int) PinDescriptor {
	return PinDescriptor{Kind: Digital, Number: number, Mode: ModeInput}
}

// PWMOutput describes a PWM capable digital pin driven as PWM.
func PWMOutput(number int) PinDescriptor {
	return PinDescriptor{Kind: Digital, Number: number, Mode: ModePWM}
}

// ServoOutput describes a digital pin driving a servo.
func ServoOutput(number int) PinDescriptor {
	return PinDescriptor{Kind: Digital, Number: number, Mode: ModeServo}
}

// AnalogInput describes an analog input channel.
func AnalogInput(number int) PinDescriptor {
	return PinDescriptor{Kind: Analog, Number: number, Mode: ModeInput}
}

// CallbackID identifies a callback registered on a Pin.
type CallbackID uint64

// A Pin is one acquired pin on a board.
type Pin interface {
	// Descriptor returns the kind, number and current mode of the pin.
	Descriptor() PinDescriptor

	// Read returns the last value reported by the board. ok is false until the board has reported
	// a value. Digital pins hold bool values, analog inputs hold float64 values in [0, 1].
	Read() (value interface{}, ok bool)

	// Write sets an output pin. Output pins take a bool (or 0/1), PWM pins a duty cycle in [0, 1]
	// and servo pins an angle in degrees [0, 180].
	Write(ctx context.Context, value interface{}) error

	// AddCallback registers f to be called with the new value each time the value changes.
	AddCallback(f func(value interface{})) CallbackID

	// RemoveCallback unregisters a callback. Unknown ids are ignored.
	RemoveCallback(id CallbackID)
}
