package arduino

import (
	"context"
	"sync"

	"go.viam.com/arduinohub/logging"
)

// Sensor type names.
const (
	AnalogSensorType  = "analog_sensor"
	DigitalSensorType = "digital_sensor"
)

func init() {
	Register(AnalogSensorType, Registration{
		NewAttributes: func() Attributes { return &PinAttributes{} },
		Constructor: func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
			conf, err := NativeAttributes[*PinAttributes](attrs)
			if err != nil {
				return nil, err
			}
			return NewAnalogSensor(name, conf.Device, conf.pin(), hub, logger), nil
		},
	})
	Register(DigitalSensorType, Registration{
		NewAttributes: func() Attributes { return &PinAttributes{} },
		Constructor: func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
			conf, err := NativeAttributes[*PinAttributes](attrs)
			if err != nil {
				return nil, err
			}
			return NewDigitalSensor(name, conf.Device, conf.pin(), hub, logger), nil
		},
	})
}

// status holds the last value pushed to a sensor.
type status struct {
	name   string
	device int
	pin    int
	hub    Hub
	logger logging.Logger

	mu       sync.Mutex
	value    interface{}
	known    bool
	onChange func(value interface{})
}

func (s *status) Name() string {
	return s.name
}

// SetStatus records value and calls the change hook, if any.
func (s *status) SetStatus(value interface{}) {
	s.mu.Lock()
	s.value = value
	s.known = true
	onChange := s.onChange
	s.mu.Unlock()

	s.logger.Debugw("status changed", "value", value)
	if onChange != nil {
		onChange(value)
	}
}

// OnChange sets a hook called with every new status.
func (s *status) OnChange(f func(value interface{})) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = f
}

func (s *status) get() (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.known
}

// An AnalogSensor follows an analog input channel.
type AnalogSensor struct {
	status
}

// NewAnalogSensor returns a sensor for analog channel pin on device. It is inactive until Start.
func NewAnalogSensor(name string, device, pin int, hub Hub, logger logging.Logger) *AnalogSensor {
	return &AnalogSensor{status{name: name, device: device, pin: pin, hub: hub, logger: logger}}
}

// Start subscribes to the channel.
func (s *AnalogSensor) Start(ctx context.Context) error {
	return s.hub.SubscribeAnalog(ctx, s.device, s.pin, s)
}

// Close unsubscribes from the channel.
func (s *AnalogSensor) Close(ctx context.Context) error {
	return s.hub.UnsubscribeAnalog(s.device, s.pin)
}

// Value returns the last reading in [0, 1]. ok is false until the board reported one.
func (s *AnalogSensor) Value() (value float64, ok bool) {
	v, known := s.get()
	if !known {
		return 0, false
	}
	value, ok = v.(float64)
	return value, ok
}

// A DigitalSensor follows a digital input pin.
type DigitalSensor struct {
	status
}

// NewDigitalSensor returns a sensor for digital pin on device. It is inactive until Start.
func NewDigitalSensor(name string, device, pin int, hub Hub, logger logging.Logger) *DigitalSensor {
	return &DigitalSensor{status{name: name, device: device, pin: pin, hub: hub, logger: logger}}
}

// Start subscribes to the pin.
func (s *DigitalSensor) Start(ctx context.Context) error {
	return s.hub.SubscribeDigital(ctx, s.device, s.pin, s)
}

// Close unsubscribes from the pin.
func (s *DigitalSensor) Close(ctx context.Context) error {
	return s.hub.UnsubscribeDigital(s.device, s.pin)
}

// Value returns the last level. ok is false until the board reported one.
func (s *DigitalSensor) Value() (value, ok bool) {
	v, known := s.get()
	if !known {
		return false, false
	}
	value, ok = v.(bool)
	return value, ok
}
