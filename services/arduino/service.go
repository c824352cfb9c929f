// Package arduino manages a set of microcontroller boards on serial links. Each present board has
// a poller goroutine reading samples from it while callers configure actuators, write values and
// subscribe sensors to input pins.
//
// Device indexes refer to positions in Config.Devices. A device that was missing or unreadable at
// startup stays absent for the lifetime of the service and every operation on it is a no-op.
package arduino

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
	"go.viam.com/arduinohub/utils"
)

// A Sensor receives the values of the input pin it is subscribed to. Analog values are float64 in
// [0, 1], digital values are bool. SetStatus is called from a poller goroutine, or from the
// subscribing goroutine for the initial value.
type Sensor interface {
	SetStatus(value interface{})
}

type pinKey struct {
	device int
	pin    int
}

type subscription struct {
	sensor Sensor
	pin    board.Pin

	// guarded by Service.tablesMu
	callback   board.CallbackID
	registered bool
}

// Service owns the board registry and the pin tables.
type Service struct {
	logger logging.Logger
	opts   options

	boards []*boardHandle
	// locks[i] serializes configuration and writes on device i. It is never held by a poller.
	locks []sync.Mutex

	tablesMu       sync.RWMutex
	analogSensors  map[pinKey]*subscription
	digitalSensors map[pinKey]*subscription
	actuators      map[pinKey]board.Pin

	workers   *utils.StoppableWorkers
	faults    chan PollerFault
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New opens the configured boards and starts their pollers. It fails with
// ErrConfigurationMismatch before touching any device if the configuration lists differ in
// length. If a device fails to open for a reason other than being missing or unreadable, every
// board opened so far is closed and the error returned.
func New(ctx context.Context, cfg Config, logger logging.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		logger:         logger.Sublogger("arduino"),
		opts:           o,
		boards:         make([]*boardHandle, len(cfg.Devices)),
		locks:          make([]sync.Mutex, len(cfg.Devices)),
		analogSensors:  map[pinKey]*subscription{},
		digitalSensors: map[pinKey]*subscription{},
		actuators:      map[pinKey]board.Pin{},
		workers:        utils.NewBackgroundStoppableWorkers(),
		faults:         make(chan PollerFault, len(cfg.Devices)),
	}
	if err := s.openBoards(ctx, cfg); err != nil {
		return nil, multierr.Combine(err, s.Close(ctx))
	}
	return s, nil
}

// Len returns the number of configured devices, present or not.
func (s *Service) Len() int {
	return len(s.boards)
}

// Present returns whether the device was opened at startup.
func (s *Service) Present(device int) bool {
	h, err := s.handle(device)
	return err == nil && h.present()
}

// PollerState returns the state of the device's poller.
func (s *Service) PollerState(device int) (PollerState, error) {
	h, err := s.handle(device)
	if err != nil {
		return PollerStopped, err
	}
	return h.pollerState(), nil
}

// Faults delivers a PollerFault for each poller that stopped on an error. The channel is never
// closed.
func (s *Service) Faults() <-chan PollerFault {
	return s.faults
}

// Close closes every present board and waits for the pollers to exit. Subsequent calls return the
// result of the first.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		for _, h := range s.boards {
			if h == nil || !h.present() {
				continue
			}
			if err := h.board.Close(ctx); err != nil {
				s.closeErr = multierr.Combine(s.closeErr, errors.Wrapf(err, "failed to close device %d (%s)", h.index, h.path))
			}
		}
		s.workers.Stop()
		s.logger.CDebugw(ctx, "closed", "devices", len(s.boards))
	})
	return s.closeErr
}
