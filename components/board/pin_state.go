package board

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// PinState holds the last value a board reported for a pin together with the pin's change
// callbacks. Drivers embed it in their Pin implementations.
type PinState struct {
	mu        sync.Mutex
	value     interface{}
	known     bool
	nextID    CallbackID
	callbacks []registeredCallback
}

type registeredCallback struct {
	id CallbackID
	f  func(value interface{})
}

// Read returns the last reported value, if any.
func (s *PinState) Read() (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.known
}

// Update stores a newly reported value. When it differs from the previous value the callbacks are
// invoked, in registration order, on the calling goroutine and without holding the state lock.
func (s *PinState) Update(value interface{}) bool {
	s.mu.Lock()
	if s.known && s.value == value {
		s.mu.Unlock()
		return false
	}
	s.value = value
	s.known = true
	callbacks := make([]registeredCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb.f(value)
	}
	return true
}

// Forget drops the stored value, e.g. after the pin changed mode.
func (s *PinState) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
	s.known = false
}

// AddCallback registers f for value changes.
func (s *PinState) AddCallback(f func(value interface{})) CallbackID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.callbacks = append(s.callbacks, registeredCallback{s.nextID, f})
	return s.nextID
}

// RemoveCallback unregisters the callback with the given id.
func (s *PinState) RemoveCallback(id CallbackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx, cb := range s.callbacks {
		if cb.id == id {
			s.callbacks = append(s.callbacks[:idx:idx], s.callbacks[idx+1:]...)
			return
		}
	}
}

// NumCallbacks returns how many callbacks are registered.
func (s *PinState) NumCallbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}

// AnalogValue converts a raw 10-bit analog reading into [0, 1], rounded to 4 decimals.
func AnalogValue(raw int) float64 {
	return math.Round(float64(raw)/1023*10000) / 10000
}

// DigitalLevel interprets a value written to a digital output.
func DigitalLevel(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, errors.Wrapf(ErrInvalidValue, "digital output takes a bool or 0/1, got %v (%T)", value, value)
}

// DutyCycle interprets a value written to a PWM output.
func DutyCycle(value interface{}) (float64, error) {
	var duty float64
	switch v := value.(type) {
	case float64:
		duty = v
	case float32:
		duty = float64(v)
	case int:
		duty = float64(v)
	case bool:
		if v {
			duty = 1
		}
	default:
		return 0, errors.Wrapf(ErrInvalidValue, "pwm output takes a duty cycle, got %T", value)
	}
	if math.IsNaN(duty) || duty < 0 || duty > 1 {
		return 0, errors.Wrapf(ErrInvalidValue, "duty cycle must be in [0, 1], got %v", duty)
	}
	return duty, nil
}

// ServoAngle interprets a value written to a servo output.
func ServoAngle(value interface{}) (int, error) {
	var angle float64
	switch v := value.(type) {
	case int:
		angle = float64(v)
	case float64:
		angle = v
	case float32:
		angle = float64(v)
	default:
		return 0, errors.Wrapf(ErrInvalidValue, "servo output takes an angle, got %T", value)
	}
	if math.IsNaN(angle) || angle < 0 || angle > 180 {
		return 0, errors.Wrapf(ErrInvalidValue, "servo angle must be in [0, 180], got %v", angle)
	}
	return int(math.Round(angle)), nil
}

// PWMByte scales a duty cycle to the 8-bit value sent to the board.
func PWMByte(duty float64) int {
	return int(math.Round(duty * 255))
}
