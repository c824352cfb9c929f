package arduino

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/arduinohub/components/board"
)

// PinAttributes select one pin on one configured device.
type PinAttributes struct {
	Device int  `json:"device"`
	Pin    *int `json:"pin"`
}

// Validate ensures all parts of the attributes are valid.
func (attrs *PinAttributes) Validate(path string) error {
	if attrs.Device < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("device index must not be negative, got %d", attrs.Device))
	}
	if attrs.Pin == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "pin")
	}
	if *attrs.Pin < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("pin must not be negative, got %d", *attrs.Pin))
	}
	return nil
}

func (attrs *PinAttributes) pin() int {
	return *attrs.Pin
}

// ServoAttributes configure a servo actuator. Pulse widths are in microseconds.
type ServoAttributes struct {
	PinAttributes
	MinPulse int `json:"min_pulse"`
	MaxPulse int `json:"max_pulse"`
	Angle    int `json:"angle"`
}

func newServoAttributes() Attributes {
	return &ServoAttributes{
		MinPulse: board.DefaultServoMinPulse,
		MaxPulse: board.DefaultServoMaxPulse,
	}
}

// Validate ensures all parts of the attributes are valid.
func (attrs *ServoAttributes) Validate(path string) error {
	if err := attrs.PinAttributes.Validate(path); err != nil {
		return err
	}
	if attrs.MinPulse <= 0 || attrs.MinPulse >= attrs.MaxPulse {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("min_pulse must be positive and below max_pulse, got %d and %d", attrs.MinPulse, attrs.MaxPulse))
	}
	if attrs.Angle < 0 || attrs.Angle > 180 {
		return goutils.NewConfigValidationError(path, errors.Errorf("angle must be in [0, 180], got %d", attrs.Angle))
	}
	return nil
}
