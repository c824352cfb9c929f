package arduino

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
	"go.viam.com/arduinohub/utils/stacktrace"
)

func (s *Service) startPoller(h *boardHandle) {
	logger := s.logger.Sublogger(fmt.Sprintf("poller.%d", h.index))
	h.state.Store(int32(PollerRunning))
	if !s.workers.Add(func(ctx context.Context) { s.poll(ctx, h, logger) }) {
		h.state.Store(int32(PollerStopped))
	}
}

// poll feeds the board until the service closes or Iterate fails. Pin callbacks, and with them
// sensor notifications, run on this goroutine from inside Iterate. No device lock is held here.
func (s *Service) poll(ctx context.Context, h *boardHandle, logger logging.Logger) {
	defer h.state.Store(int32(PollerStopped))
	defer func() {
		if r := recover(); r != nil {
			s.fault(h, errors.Errorf("poller panicked: %v", r), logger)
		}
	}()

	logger.Debugw("poller started", "path", h.path)
	for {
		err := h.board.Iterate(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil || (s.closing.Load() && errors.Is(err, board.ErrClosed)) {
			logger.Debugw("poller stopped", "path", h.path)
			return
		}
		s.fault(h, err, logger)
		return
	}
}

func (s *Service) fault(h *boardHandle, err error, logger logging.Logger) {
	f := PollerFault{Device: h.index, Path: h.path, Err: err, Stacks: stacktrace.Dump()}
	logger.Errorw("poller stopped unexpectedly", "device", h.index, "path", h.path, "error", err, "stacks", f.Stacks)
	select {
	case s.faults <- f:
	default:
		logger.Warnw("dropping poller fault, nobody is reading faults", "device", h.index)
	}
}
