// Package firmata drives boards running Firmata firmware over a serial link.
package firmata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
	"go.viam.com/arduinohub/serial"
)

// Defaults used by Open.
const (
	DefaultBaudRate    = 57600
	DefaultBootWait    = 2 * time.Second
	DefaultReadTimeout = 100 * time.Millisecond
)

// Options tune how a board is opened.
type Options struct {
	BaudRate int
	// BootWait is how long to wait after opening the port before talking to the board. Opening
	// the port resets most boards and the bootloader swallows anything sent during that window.
	BootWait time.Duration
	// ReadTimeout bounds how long a single Iterate call blocks.
	ReadTimeout time.Duration
}

// DefaultOptions returns the options Open uses.
func DefaultOptions() Options {
	return Options{
		BaudRate:    DefaultBaudRate,
		BootWait:    DefaultBootWait,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Open opens the board at path with the default options.
func Open(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error) {
	b, err := OpenWithOptions(ctx, path, boardType, DefaultOptions(), logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// OpenWithOptions opens the board at path. Failures to open the port are classified by the serial
// package, so a missing or unreadable device matches serial.ErrUnavailable.
func OpenWithOptions(
	ctx context.Context,
	path string,
	boardType board.Type,
	opts Options,
	logger logging.Logger,
) (*Board, error) {
	layout, err := board.LayoutFor(boardType)
	if err != nil {
		return nil, err
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	port, err := serial.Open(path, serial.Options{BaudRate: opts.BaudRate, ReadTimeout: opts.ReadTimeout})
	if err != nil {
		return nil, err
	}
	b := newBoard(port, path, layout, logger)

	if opts.BootWait > 0 {
		timer := time.NewTimer(opts.BootWait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, multierr.Combine(ctx.Err(), b.Close(ctx))
		}
	}
	logger.CDebugw(ctx, "opened firmata board", "path", path, "type", boardType, "baud", opts.BaudRate)
	return b, nil
}

// NewFromPort wraps an already open port. It does not wait for the board to boot.
func NewFromPort(port serial.Port, path string, boardType board.Type, logger logging.Logger) (*Board, error) {
	layout, err := board.LayoutFor(boardType)
	if err != nil {
		return nil, err
	}
	return newBoard(port, path, layout, logger), nil
}

func newBoard(port serial.Port, path string, layout board.Layout, logger logging.Logger) *Board {
	return &Board{
		logger:    logger,
		path:      path,
		layout:    layout,
		port:      port,
		buf:       make([]byte, 256),
		digital:   map[int]*Pin{},
		analog:    map[int]*Pin{},
		reporting: map[int]bool{},
		outputs:   make([]int, layout.Ports()),
	}
}

// A Board is a Firmata board on a serial port.
type Board struct {
	logger logging.Logger
	path   string
	layout board.Layout
	port   serial.Port

	// writeMu keeps messages whole on the wire. Taken before mu when both are needed.
	writeMu sync.Mutex

	readMu sync.Mutex
	dec    decoder
	buf    []byte

	mu        sync.Mutex
	digital   map[int]*Pin
	analog    map[int]*Pin
	reporting map[int]bool
	outputs   []int
	firmware  string

	closed atomic.Bool
}

// Pin acquires a pin. See board.Board.
func (b *Board) Pin(ctx context.Context, desc board.PinDescriptor) (board.Pin, error) {
	if err := b.layout.Check(desc); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, board.ErrClosed
	}

	b.mu.Lock()
	pins := b.digital
	if desc.Kind == board.Analog {
		pins = b.analog
	}
	pin, existed := pins[desc.Number]
	if !existed {
		pin = &Pin{board: b}
		pins[desc.Number] = pin
	}
	modeChanged := existed && pin.desc.Mode != desc.Mode
	if modeChanged && pin.desc.Mode == board.ModeOutput {
		port := desc.Number / pinsPerPort
		b.outputs[port] &^= 1 << (desc.Number % pinsPerPort)
	}
	pin.desc = desc
	enablePort := false
	if desc.Kind == board.Digital && desc.Mode == board.ModeInput && !b.reporting[desc.Number/pinsPerPort] {
		b.reporting[desc.Number/pinsPerPort] = true
		enablePort = true
	}
	b.mu.Unlock()

	if modeChanged {
		pin.Forget()
	}

	if desc.Kind == board.Analog {
		if err := b.write(encodeReportAnalog(desc.Number, true)); err != nil {
			return nil, err
		}
		return pin, nil
	}
	if err := b.write(encodePinMode(desc.Number, wireMode(desc.Mode))); err != nil {
		return nil, err
	}
	if enablePort {
		if err := b.write(encodeReportDigital(desc.Number/pinsPerPort, true)); err != nil {
			return nil, err
		}
	}
	return pin, nil
}

// SendSysex sends a sysex command.
func (b *Board) SendSysex(ctx context.Context, command byte, payload []byte) error {
	return b.write(encodeSysex(command, payload))
}

// ServoConfig sends the pulse range for a servo pin, puts the pin in servo mode and moves it to
// angle.
func (b *Board) ServoConfig(ctx context.Context, pin, minPulse, maxPulse, angle int) error {
	desc := board.ServoOutput(pin)
	if err := b.layout.Check(desc); err != nil {
		return err
	}
	payload := []byte{byte(pin)}
	payload = append(payload, board.ToTwoBytes(minPulse)...)
	payload = append(payload, board.ToTwoBytes(maxPulse)...)
	if err := b.SendSysex(ctx, board.SysexServoConfig, payload); err != nil {
		return err
	}
	servo, err := b.Pin(ctx, desc)
	if err != nil {
		return err
	}
	return servo.Write(ctx, angle)
}

// Iterate reads whatever the board has sent, up to the read timeout, and applies it.
func (b *Board) Iterate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return board.ErrClosed
	}

	b.readMu.Lock()
	defer b.readMu.Unlock()
	n, err := b.port.Read(b.buf)
	if err != nil {
		if b.closed.Load() {
			return board.ErrClosed
		}
		return errors.Wrapf(err, "error reading from %s", b.path)
	}
	for _, msg := range b.dec.feed(b.buf[:n]) {
		b.handle(msg)
	}
	return nil
}

// Firmware returns the firmware name and version the board reported, if any.
func (b *Board) Firmware() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firmware
}

// Close closes the serial port. Only the first call has an effect.
func (b *Board) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.port.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", b.path)
	}
	return nil
}

func (b *Board) write(msg []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.writeLocked(msg)
}

func (b *Board) writeLocked(msg []byte) error {
	if b.closed.Load() {
		return board.ErrClosed
	}
	if _, err := b.port.Write(msg); err != nil {
		return errors.Wrapf(err, "error writing to %s", b.path)
	}
	return nil
}

// writeDigital sends the whole port containing pin. Firmata has no single pin digital write in
// the protocol versions we target, so the last written level of every output pin is tracked.
func (b *Board) writeDigital(pin int, level bool) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	port := pin / pinsPerPort
	b.mu.Lock()
	if level {
		b.outputs[port] |= 1 << (pin % pinsPerPort)
	} else {
		b.outputs[port] &^= 1 << (pin % pinsPerPort)
	}
	mask := b.outputs[port]
	b.mu.Unlock()

	return b.writeLocked(encodeDigitalPort(port, mask))
}

func (b *Board) handle(msg message) {
	switch msg.command {
	case digitalMessage:
		b.handleDigitalPort(msg.channel, msg.value())
	case analogMessage:
		b.mu.Lock()
		pin, ok := b.analog[msg.channel]
		b.mu.Unlock()
		if ok {
			pin.Update(board.AnalogValue(msg.value()))
		}
	case reportVersion:
		b.logger.Debugw("firmata protocol version", "path", b.path, "major", msg.data[0], "minor", msg.data[1])
	case startSysex:
		b.handleSysex(msg.data)
	default:
	}
}

func (b *Board) handleDigitalPort(port, mask int) {
	type update struct {
		pin   *Pin
		level bool
	}
	var updates []update
	b.mu.Lock()
	for i := 0; i < pinsPerPort; i++ {
		pin, ok := b.digital[port*pinsPerPort+i]
		if !ok || pin.desc.Mode != board.ModeInput {
			continue
		}
		updates = append(updates, update{pin, mask&(1<<i) != 0})
	}
	b.mu.Unlock()

	for _, u := range updates {
		u.pin.Update(u.level)
	}
}

func (b *Board) handleSysex(data []byte) {
	if len(data) == 0 {
		return
	}
	switch data[0] {
	case board.SysexReportFirmware:
		if len(data) < 3 {
			return
		}
		firmware := fmt.Sprintf("%s %d.%d", decodeString(data[3:]), data[1], data[2])
		b.mu.Lock()
		b.firmware = firmware
		b.mu.Unlock()
		b.logger.Infow("board firmware", "path", b.path, "firmware", firmware)
	case board.SysexStringData:
		b.logger.Infow("message from board", "path", b.path, "text", decodeString(data[1:]))
	default:
		b.logger.Debugw("ignoring sysex message", "path", b.path, "command", fmt.Sprintf("%#x", data[0]))
	}
}

// A Pin is a pin on a Firmata board.
type Pin struct {
	board.PinState

	board *Board
	desc  board.PinDescriptor
}

// Descriptor returns the pin's descriptor in its current mode.
func (p *Pin) Descriptor() board.PinDescriptor {
	p.board.mu.Lock()
	defer p.board.mu.Unlock()
	return p.desc
}

// Write sets the pin according to its mode.
func (p *Pin) Write(ctx context.Context, value interface{}) error {
	desc := p.Descriptor()
	switch desc.Mode {
	case board.ModeOutput:
		level, err := board.DigitalLevel(value)
		if err != nil {
			return err
		}
		return p.board.writeDigital(desc.Number, level)
	case board.ModePWM:
		duty, err := board.DutyCycle(value)
		if err != nil {
			return err
		}
		return p.board.write(encodeAnalogWrite(desc.Number, board.PWMByte(duty)))
	case board.ModeServo:
		angle, err := board.ServoAngle(value)
		if err != nil {
			return err
		}
		return p.board.write(encodeAnalogWrite(desc.Number, angle))
	default:
		return errors.Wrapf(board.ErrUnsupportedMode, "cannot write to input pin %s", desc)
	}
}
