package arduino

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/arduinohub/components/board"
)

// SetupDigital configures pin on device as a digital output.
func (s *Service) SetupDigital(ctx context.Context, device, pin int) error {
	return s.setupActuator(ctx, device, board.DigitalOutput(pin), nil)
}

// SetupPWM configures pin on device as a PWM output.
func (s *Service) SetupPWM(ctx context.Context, device, pin int) error {
	return s.setupActuator(ctx, device, board.PWMOutput(pin), nil)
}

// SetupServo configures pin on device to drive a servo with the given pulse range, in
// microseconds, and moves it to angle.
func (s *Service) SetupServo(ctx context.Context, device, pin, minPulse, maxPulse, angle int) error {
	return s.setupActuator(ctx, device, board.ServoOutput(pin), func(b board.Board) error {
		return b.ServoConfig(ctx, pin, minPulse, maxPulse, angle)
	})
}

func (s *Service) setupActuator(
	ctx context.Context,
	device int,
	desc board.PinDescriptor,
	configure func(board.Board) error,
) error {
	h, err := s.handle(device)
	if err != nil {
		return err
	}
	if !h.present() {
		return nil
	}

	s.locks[device].Lock()
	defer s.locks[device].Unlock()

	pin, err := h.board.Pin(ctx, desc)
	if err != nil {
		return errors.Wrapf(err, "failed to set up %s on device %d", desc, device)
	}
	if configure != nil {
		if err := configure(h.board); err != nil {
			return errors.Wrapf(err, "failed to configure %s on device %d", desc, device)
		}
	}

	s.tablesMu.Lock()
	s.actuators[pinKey{device, desc.Number}] = pin
	s.tablesMu.Unlock()
	s.logger.CDebugw(ctx, "actuator set up", "device", device, "pin", desc.String())
	return nil
}

// ChangeDigital writes value to an actuator set up earlier. Digital outputs take a bool, PWM
// outputs a duty cycle in [0, 1] and servos an angle in degrees.
func (s *Service) ChangeDigital(ctx context.Context, device, pin int, value interface{}) error {
	h, err := s.handle(device)
	if err != nil {
		return err
	}
	if !h.present() {
		return nil
	}

	s.locks[device].Lock()
	defer s.locks[device].Unlock()

	s.tablesMu.RLock()
	actuator, ok := s.actuators[pinKey{device, pin}]
	s.tablesMu.RUnlock()
	if !ok {
		return newNotConfiguredError(device, pin)
	}
	if err := actuator.Write(ctx, value); err != nil {
		return errors.Wrapf(err, "failed to write %v to device %d pin %d", value, device, pin)
	}
	return nil
}

// CleanupDigitalActuator forgets an actuator. The pin keeps its last written value.
func (s *Service) CleanupDigitalActuator(device, pin int) error {
	if _, err := s.handle(device); err != nil {
		return err
	}
	s.tablesMu.Lock()
	delete(s.actuators, pinKey{device, pin})
	s.tablesMu.Unlock()
	return nil
}
