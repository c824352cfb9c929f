package board

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Type identifies a board model. It selects the pin layout used to validate pin acquisition.
type Type string

// The known board types.
const (
	TypeStandard Type = "Standard"
	TypeMega     Type = "Mega"
	TypeDue      Type = "Due"
)

// ParseType accepts the canonical type names as well as the "Arduino"-prefixed spellings, case
// insensitively: "Arduino" and "Standard", "ArduinoMega" and "Mega", "ArduinoDue" and "Due".
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "arduino", "uno":
		return TypeStandard, nil
	case "mega", "arduinomega":
		return TypeMega, nil
	case "due", "arduinodue":
		return TypeDue, nil
	}
	return "", errors.Errorf("unknown board type %q", name)
}

// A Layout describes which pins a board type has.
type Layout struct {
	DigitalPins int
	AnalogPins  int
	PWMPins     []int
	// Disabled pins are reserved, typically for the serial link to the host.
	Disabled []int
}

var layouts = map[Type]Layout{
	TypeStandard: {
		DigitalPins: 14,
		AnalogPins:  6,
		PWMPins:     []int{3, 5, 6, 9, 10, 11},
		Disabled:    []int{0, 1},
	},
	TypeMega: {
		DigitalPins: 54,
		AnalogPins:  16,
		PWMPins:     pinRange(2, 14),
		Disabled:    []int{0, 1},
	},
	TypeDue: {
		DigitalPins: 54,
		AnalogPins:  12,
		PWMPins:     pinRange(2, 14),
		Disabled:    []int{0, 1},
	},
}

// LayoutFor returns the layout of a board type.
func LayoutFor(t Type) (Layout, error) {
	layout, ok := layouts[t]
	if !ok {
		return Layout{}, errors.Errorf("no layout for board type %q", t)
	}
	return layout, nil
}

// Check returns an error if desc cannot be acquired on a board with this layout.
func (l Layout) Check(desc PinDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	switch desc.Kind {
	case Analog:
		if desc.Number >= l.AnalogPins {
			return errors.Wrapf(ErrInvalidPin, "board has %d analog pins, got %s", l.AnalogPins, desc)
		}
	case Digital:
		if desc.Number >= l.DigitalPins || lo.Contains(l.Disabled, desc.Number) {
			return errors.Wrapf(ErrInvalidPin, "digital pin not available: %s", desc)
		}
		if desc.Mode == ModePWM && !lo.Contains(l.PWMPins, desc.Number) {
			return errors.Wrapf(ErrUnsupportedMode, "pin is not PWM capable: %s", desc)
		}
	}
	return nil
}

// Ports returns the number of 8-pin digital ports.
func (l Layout) Ports() int {
	return (l.DigitalPins + 7) / 8
}

func pinRange(from, to int) []int {
	return lo.RangeFrom(from, to-from)
}
