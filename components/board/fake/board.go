// Package fake implements an in-memory board. Samples are queued with Inject and applied by
// Iterate, just as a serial driver applies incoming messages, so it can stand in for hardware in
// tests and in hardware-free runs.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
)

// WriteCall records one Pin.Write.
type WriteCall struct {
	Desc  board.PinDescriptor
	Value interface{}
}

// SysexCall records one SendSysex.
type SysexCall struct {
	Command byte
	Payload []byte
}

// ServoCall records one ServoConfig.
type ServoCall struct {
	Pin, MinPulse, MaxPulse, Angle int
}

type pinKey struct {
	kind   board.PinKind
	number int
}

type sample struct {
	key   pinKey
	value interface{}
	err   error
	done  chan struct{}
}

// A Board provides in-memory pins that read back injected samples and record writes.
type Board struct {
	Path string

	mu     sync.Mutex
	layout board.Layout
	pins   map[pinKey]*Pin
	writes []WriteCall
	sysex  []SysexCall
	servos []ServoCall

	samples   chan sample
	closed    chan struct{}
	closeOnce sync.Once

	CloseCount atomic.Int32
	Iterations atomic.Int64
}

// NewBoard returns a new fake board with the layout of the given type.
func NewBoard(boardType board.Type) (*Board, error) {
	layout, err := board.LayoutFor(boardType)
	if err != nil {
		return nil, err
	}
	return &Board{
		layout:  layout,
		pins:    map[pinKey]*Pin{},
		samples: make(chan sample),
		closed:  make(chan struct{}),
	}, nil
}

// Open matches the signature of a board opener. It ignores the device path other than recording
// it.
func Open(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error) {
	b, err := NewBoard(boardType)
	if err != nil {
		return nil, err
	}
	b.Path = path
	logger.Debugw("opened fake board", "path", path, "type", boardType)
	return b, nil
}

// Pin acquires a pin, creating it on first use.
func (b *Board) Pin(ctx context.Context, desc board.PinDescriptor) (board.Pin, error) {
	if err := b.layout.Check(desc); err != nil {
		return nil, err
	}
	if b.isClosed() {
		return nil, board.ErrClosed
	}
	pin := b.pin(pinKey{desc.Kind, desc.Number})
	pin.setMode(desc.Mode)
	return pin, nil
}

func (b *Board) pin(key pinKey) *Pin {
	b.mu.Lock()
	defer b.mu.Unlock()
	pin, ok := b.pins[key]
	if !ok {
		pin = &Pin{board: b, desc: board.PinDescriptor{Kind: key.kind, Number: key.number}}
		b.pins[key] = pin
	}
	return pin
}

// SendSysex records the command.
func (b *Board) SendSysex(ctx context.Context, command byte, payload []byte) error {
	if b.isClosed() {
		return board.ErrClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sysex = append(b.sysex, SysexCall{command, append([]byte(nil), payload...)})
	return nil
}

// ServoConfig records the configuration and moves the pin to angle.
func (b *Board) ServoConfig(ctx context.Context, pin, minPulse, maxPulse, angle int) error {
	servo, err := b.Pin(ctx, board.ServoOutput(pin))
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.servos = append(b.servos, ServoCall{pin, minPulse, maxPulse, angle})
	b.mu.Unlock()
	return servo.Write(ctx, angle)
}

// Iterate applies the next injected sample, blocking until one is available, the board is closed
// or ctx is done.
func (b *Board) Iterate(ctx context.Context) error {
	select {
	case <-b.closed:
		return board.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case s := <-b.samples:
		b.Iterations.Inc()
		defer close(s.done)
		if s.err != nil {
			return s.err
		}
		b.pin(s.key).Update(s.value)
		return nil
	}
}

// Inject hands a sample to the next Iterate call and waits until it has been applied, including
// any change callbacks. It returns early if ctx is done or the board is closed.
func (b *Board) Inject(ctx context.Context, kind board.PinKind, number int, value interface{}) error {
	return b.enqueue(ctx, sample{key: pinKey{kind, number}, value: value})
}

// FailIterate makes the next Iterate call return err.
func (b *Board) FailIterate(ctx context.Context, err error) error {
	return b.enqueue(ctx, sample{err: err})
}

func (b *Board) enqueue(ctx context.Context, s sample) error {
	s.done = make(chan struct{})
	select {
	case b.samples <- s:
	case <-b.closed:
		return board.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Set stores a value on a pin as if the board had reported it earlier, bypassing Iterate.
func (b *Board) Set(kind board.PinKind, number int, value interface{}) {
	b.pin(pinKey{kind, number}).Update(value)
}

// Writes returns every write made through the board's pins, in order.
func (b *Board) Writes() []WriteCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]WriteCall(nil), b.writes...)
}

// Sysex returns every sysex command sent, in order.
func (b *Board) Sysex() []SysexCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SysexCall(nil), b.sysex...)
}

// Servos returns every servo configuration sent, in order.
func (b *Board) Servos() []ServoCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ServoCall(nil), b.servos...)
}

// PinFor returns the pin with the given kind and number if it has been acquired or set.
func (b *Board) PinFor(kind board.PinKind, number int) (*Pin, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pin, ok := b.pins[pinKey{kind, number}]
	return pin, ok
}

// Close closes the board. Subsequent Iterate calls return board.ErrClosed.
func (b *Board) Close(ctx context.Context) error {
	b.CloseCount.Inc()
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *Board) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// A Pin reads back injected samples and records writes.
type Pin struct {
	board.PinState

	board *Board
	mu    sync.Mutex
	desc  board.PinDescriptor
}

// Descriptor returns the pin's descriptor in its current mode.
func (p *Pin) Descriptor() board.PinDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desc
}

func (p *Pin) setMode(mode board.PinMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.desc.Mode = mode
}

// Write validates the value for the pin's mode and records it.
func (p *Pin) Write(ctx context.Context, value interface{}) error {
	desc := p.Descriptor()
	var (
		normalized interface{}
		err        error
	)
	switch desc.Mode {
	case board.ModeOutput:
		normalized, err = board.DigitalLevel(value)
	case board.ModePWM:
		normalized, err = board.DutyCycle(value)
	case board.ModeServo:
		normalized, err = board.ServoAngle(value)
	default:
		return errors.Wrapf(board.ErrUnsupportedMode, "cannot write to input pin %s", desc)
	}
	if err != nil {
		return err
	}
	if p.board.isClosed() {
		return board.ErrClosed
	}

	p.board.mu.Lock()
	defer p.board.mu.Unlock()
	p.board.writes = append(p.board.writes, WriteCall{desc, normalized})
	return nil
}
