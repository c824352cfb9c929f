package arduino

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/arduinohub/components/board"
)

// SubscribeAnalog subscribes sensor to analog input pin on device. If the board already reported
// a value for the pin, the sensor receives it before SubscribeAnalog returns. A later subscription
// to the same pin replaces this one.
func (s *Service) SubscribeAnalog(ctx context.Context, device, pin int, sensor Sensor) error {
	return s.subscribe(ctx, device, board.AnalogInput(pin), s.analogSensors, sensor)
}

// SubscribeDigital is SubscribeAnalog for digital input pins.
func (s *Service) SubscribeDigital(ctx context.Context, device, pin int, sensor Sensor) error {
	return s.subscribe(ctx, device, board.DigitalInput(pin), s.digitalSensors, sensor)
}

// UnsubscribeAnalog removes the subscription on an analog pin, if any.
func (s *Service) UnsubscribeAnalog(device, pin int) error {
	return s.unsubscribe(device, pin, s.analogSensors)
}

// UnsubscribeDigital removes the subscription on a digital pin, if any.
func (s *Service) UnsubscribeDigital(device, pin int) error {
	return s.unsubscribe(device, pin, s.digitalSensors)
}

func (s *Service) subscribe(
	ctx context.Context,
	device int,
	desc board.PinDescriptor,
	table map[pinKey]*subscription,
	sensor Sensor,
) error {
	h, err := s.handle(device)
	if err != nil {
		return err
	}
	if !h.present() {
		return nil
	}

	key := pinKey{device, desc.Number}
	s.locks[device].Lock()
	pin, err := h.board.Pin(ctx, desc)
	if err != nil {
		s.locks[device].Unlock()
		return errors.Wrapf(err, "failed to subscribe to %s on device %d", desc, device)
	}
	sub := &subscription{sensor: sensor, pin: pin}
	s.tablesMu.Lock()
	prev := table[key]
	table[key] = sub
	s.tablesMu.Unlock()
	value, known := pin.Read()
	s.locks[device].Unlock()

	if prev != nil {
		s.detach(prev)
	}
	if known {
		sensor.SetStatus(value)
	}

	id := pin.AddCallback(s.notifier(table, key, sub))
	s.tablesMu.Lock()
	sub.callback = id
	sub.registered = true
	stale := table[key] != sub
	s.tablesMu.Unlock()
	if stale {
		// replaced or unsubscribed while registering
		pin.RemoveCallback(id)
	} else if latest, ok := pin.Read(); ok && (!known || latest != value) {
		// a change that landed between the priming read and registration fired no callback
		s.notifier(table, key, sub)(latest)
	}
	s.logger.CDebugw(ctx, "sensor subscribed", "device", device, "pin", desc.String(), "primed", known)
	return nil
}

// notifier forwards pin changes to sub's sensor for as long as sub is the entry for key.
func (s *Service) notifier(table map[pinKey]*subscription, key pinKey, sub *subscription) func(interface{}) {
	return func(value interface{}) {
		s.tablesMu.RLock()
		current := table[key]
		s.tablesMu.RUnlock()
		if current != sub {
			return
		}
		sub.sensor.SetStatus(value)
	}
}

func (s *Service) unsubscribe(device, pin int, table map[pinKey]*subscription) error {
	if _, err := s.handle(device); err != nil {
		return err
	}
	key := pinKey{device, pin}
	s.tablesMu.Lock()
	sub, ok := table[key]
	delete(table, key)
	s.tablesMu.Unlock()
	if ok {
		s.detach(sub)
	}
	return nil
}

// detach removes sub's callback from its pin if it was registered. If it was not yet, the
// subscriber removes it itself once it notices it is no longer current.
func (s *Service) detach(sub *subscription) {
	s.tablesMu.RLock()
	id, registered := sub.callback, sub.registered
	s.tablesMu.RUnlock()
	if registered {
		sub.pin.RemoveCallback(id)
	}
}
