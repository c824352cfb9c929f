package arduino

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/serial"
)

// PollerState is the state of the poller of one board.
type PollerState int32

// The poller states. Absent boards never have a running poller.
const (
	PollerStopped PollerState = iota
	PollerRunning
)

func (s PollerState) String() string {
	switch s {
	case PollerStopped:
		return "stopped"
	case PollerRunning:
		return "running"
	default:
		return fmt.Sprintf("PollerState(%d)", int32(s))
	}
}

// boardHandle is one slot of the registry. board is nil when the device was absent at startup and
// never changes afterwards.
type boardHandle struct {
	index          int
	path           string
	boardType      board.Type
	samplingMillis int

	board board.Board
	state atomic.Int32
}

func (h *boardHandle) present() bool {
	return h.board != nil
}

func (h *boardHandle) pollerState() PollerState {
	return PollerState(h.state.Load())
}

// openBoards fills the registry in configuration order. A device that is missing or unreadable is
// left absent with a warning. Any other failure stops the walk and is returned; boards opened
// until then stay in the registry so Close releases them.
func (s *Service) openBoards(ctx context.Context, cfg Config) error {
	for idx, path := range cfg.Devices {
		h := &boardHandle{
			index:          idx,
			path:           path,
			boardType:      cfg.Types[idx],
			samplingMillis: cfg.SamplingMillis[idx],
		}
		s.boards[idx] = h

		b, err := s.open(ctx, h)
		if err != nil {
			if serial.IsUnavailable(err) {
				s.logger.CWarnw(ctx, "device not available, continuing without it", "device", idx, "path", path, "error", err)
				continue
			}
			return errors.Wrapf(err, "failed to open device %d (%s)", idx, path)
		}
		h.board = b

		if err := b.SendSysex(ctx, board.SysexSamplingInterval, board.ToTwoBytes(h.samplingMillis)); err != nil {
			return errors.Wrapf(err, "failed to set sampling interval of device %d (%s)", idx, path)
		}
		s.startPoller(h)
		s.logger.CInfow(ctx, "board ready", "device", idx, "path", path, "type", h.boardType, "sampling_ms", h.samplingMillis)
	}
	return nil
}

func (s *Service) open(ctx context.Context, h *boardHandle) (board.Board, error) {
	if err := s.opts.accessCheck(h.path); err != nil {
		return nil, err
	}
	return s.opts.opener(ctx, h.path, h.boardType, s.logger.Sublogger(fmt.Sprintf("board.%d", h.index)))
}

// handle returns the slot for device. The slot may be absent.
func (s *Service) handle(device int) (*boardHandle, error) {
	if device < 0 || device >= len(s.boards) {
		return nil, newUnknownDeviceError(device, len(s.boards))
	}
	return s.boards[device], nil
}
