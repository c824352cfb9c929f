package arduino

import (
	"context"
	"sync"

	"go.viam.com/arduinohub/logging"
)

// Actuator type names.
const (
	DigitalActuatorType = "digital_actuator"
	PWMActuatorType     = "pwm_actuator"
	ServoActuatorType   = "servo_actuator"
)

func init() {
	Register(DigitalActuatorType, Registration{
		NewAttributes: func() Attributes { return &PinAttributes{} },
		Constructor: func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
			conf, err := NativeAttributes[*PinAttributes](attrs)
			if err != nil {
				return nil, err
			}
			return NewDigitalActuator(name, conf.Device, conf.pin(), hub, logger), nil
		},
	})
	Register(PWMActuatorType, Registration{
		NewAttributes: func() Attributes { return &PinAttributes{} },
		Constructor: func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
			conf, err := NativeAttributes[*PinAttributes](attrs)
			if err != nil {
				return nil, err
			}
			return NewPWMActuator(name, conf.Device, conf.pin(), hub, logger), nil
		},
	})
	Register(ServoActuatorType, Registration{
		NewAttributes: newServoAttributes,
		Constructor: func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
			conf, err := NativeAttributes[*ServoAttributes](attrs)
			if err != nil {
				return nil, err
			}
			return NewServoActuator(name, *conf, hub, logger), nil
		},
	})
}

// actuator remembers the last value it was set to.
type actuator struct {
	name   string
	device int
	pin    int
	hub    Hub
	logger logging.Logger

	mu    sync.Mutex
	value interface{}
	set   bool
}

func (a *actuator) Name() string {
	return a.name
}

// SetStatus writes value to the pin.
func (a *actuator) SetStatus(ctx context.Context, value interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.hub.ChangeDigital(ctx, a.device, a.pin, value); err != nil {
		return err
	}
	a.value = value
	a.set = true
	return nil
}

// Status returns the last value written.
func (a *actuator) Status() (interface{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, a.set
}

// Close forgets the actuator on the service side.
func (a *actuator) Close(ctx context.Context) error {
	return a.hub.CleanupDigitalActuator(a.device, a.pin)
}

// A DigitalActuator drives a digital output pin.
type DigitalActuator struct {
	actuator
}

// NewDigitalActuator returns an actuator for digital pin on device. It is inactive until Start.
func NewDigitalActuator(name string, device, pin int, hub Hub, logger logging.Logger) *DigitalActuator {
	return &DigitalActuator{actuator{name: name, device: device, pin: pin, hub: hub, logger: logger}}
}

// Start configures the pin as an output.
func (a *DigitalActuator) Start(ctx context.Context) error {
	return a.hub.SetupDigital(ctx, a.device, a.pin)
}

// A PWMActuator drives a PWM pin with a duty cycle in [0, 1].
type PWMActuator struct {
	actuator
}

// NewPWMActuator returns an actuator for PWM pin on device. It is inactive until Start.
func NewPWMActuator(name string, device, pin int, hub Hub, logger logging.Logger) *PWMActuator {
	return &PWMActuator{actuator{name: name, device: device, pin: pin, hub: hub, logger: logger}}
}

// Start configures the pin for PWM.
func (a *PWMActuator) Start(ctx context.Context) error {
	return a.hub.SetupPWM(ctx, a.device, a.pin)
}

// A ServoActuator positions a servo, in degrees.
type ServoActuator struct {
	actuator
	minPulse, maxPulse, angle int
}

// NewServoActuator returns a servo actuator. It is inactive until Start.
func NewServoActuator(name string, attrs ServoAttributes, hub Hub, logger logging.Logger) *ServoActuator {
	return &ServoActuator{
		actuator: actuator{name: name, device: attrs.Device, pin: attrs.pin(), hub: hub, logger: logger},
		minPulse: attrs.MinPulse,
		maxPulse: attrs.MaxPulse,
		angle:    attrs.Angle,
	}
}

// Start configures the servo and moves it to its initial angle.
func (a *ServoActuator) Start(ctx context.Context) error {
	if err := a.hub.SetupServo(ctx, a.device, a.pin, a.minPulse, a.maxPulse, a.angle); err != nil {
		return err
	}
	a.mu.Lock()
	a.value, a.set = a.angle, true
	a.mu.Unlock()
	a.logger.CDebugw(ctx, "servo ready", "pin", a.pin, "min_pulse", a.minPulse, "max_pulse", a.maxPulse, "angle", a.angle)
	return nil
}
