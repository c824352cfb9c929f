package firmata

import (
	"strings"

	"go.viam.com/arduinohub/components/board"
)

// Channel commands. The low nibble of the command byte carries the port or pin number.
const (
	digitalMessage byte = 0x90
	analogMessage  byte = 0xE0
	reportAnalog   byte = 0xC0
	reportDigital  byte = 0xD0
	setPinMode     byte = 0xF4
	reportVersion  byte = 0xF9
	startSysex     byte = 0xF0
	endSysex       byte = 0xF7

	extendedAnalog byte = 0x6F
)

const (
	pinsPerPort     = 8
	maxSysexPayload = 1024
)

// Pin modes as encoded on the wire.
const (
	wireInput  byte = 0x00
	wireOutput byte = 0x01
	wirePWM    byte = 0x03
	wireServo  byte = 0x04
)

func wireMode(mode board.PinMode) byte {
	switch mode {
	case board.ModeOutput:
		return wireOutput
	case board.ModePWM:
		return wirePWM
	case board.ModeServo:
		return wireServo
	case board.ModeInput:
		fallthrough
	default:
		return wireInput
	}
}

func encodePinMode(pin int, mode byte) []byte {
	return []byte{setPinMode, byte(pin), mode}
}

func encodeReportAnalog(channel int, enable bool) []byte {
	return []byte{reportAnalog | byte(channel&0x0F), boolByte(enable)}
}

func encodeReportDigital(port int, enable bool) []byte {
	return []byte{reportDigital | byte(port&0x0F), boolByte(enable)}
}

func encodeDigitalPort(port, mask int) []byte {
	return []byte{digitalMessage | byte(port&0x0F), byte(mask & 0x7F), byte((mask >> 7) & 0x7F)}
}

func encodeAnalog(pin, value int) []byte {
	return []byte{analogMessage | byte(pin&0x0F), byte(value & 0x7F), byte((value >> 7) & 0x7F)}
}

// encodeAnalogWrite sets a PWM duty or servo angle. The analog message only addresses pins 0-15,
// higher pins need the extended analog sysex.
func encodeAnalogWrite(pin, value int) []byte {
	if pin <= 0x0F {
		return encodeAnalog(pin, value)
	}
	payload := []byte{byte(pin), byte(value & 0x7F), byte((value >> 7) & 0x7F)}
	for rest := value >> 14; rest > 0; rest >>= 7 {
		payload = append(payload, byte(rest&0x7F))
	}
	return encodeSysex(extendedAnalog, payload)
}

func encodeSysex(command byte, payload []byte) []byte {
	msg := make([]byte, 0, len(payload)+3)
	msg = append(msg, startSysex, command)
	msg = append(msg, payload...)
	return append(msg, endSysex)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// message is one decoded message from the board. For channel messages command is the high nibble
// and channel the low one. For sysex messages command is startSysex and data starts with the sysex
// command byte.
type message struct {
	command byte
	channel int
	data    []byte
}

func (m message) value() int {
	return board.FromTwoBytes(m.data[0], m.data[1])
}

// decoder splits a byte stream into messages. It is fed whatever a serial read returned and keeps
// partial messages across calls. Data bytes with no command in progress are dropped, so it
// resynchronizes on the next command byte after line noise.
type decoder struct {
	command byte
	need    int
	inSysex bool
	data    []byte
}

func (d *decoder) feed(p []byte) []message {
	var msgs []message
	for _, b := range p {
		if d.inSysex {
			switch {
			case b == endSysex:
				msgs = append(msgs, message{command: startSysex, data: append([]byte(nil), d.data...)})
				d.reset()
				continue
			case b&0x80 == 0:
				if len(d.data) < maxSysexPayload {
					d.data = append(d.data, b)
				}
				continue
			default:
				// a command byte inside sysex aborts it
				d.reset()
			}
		}

		if b&0x80 != 0 {
			d.startCommand(b)
			continue
		}
		if d.command == 0 {
			continue
		}
		d.data = append(d.data, b)
		if len(d.data) == d.need {
			msgs = append(msgs, d.channelMessage())
			d.reset()
		}
	}
	return msgs
}

func (d *decoder) startCommand(b byte) {
	d.reset()
	switch {
	case b == startSysex:
		d.inSysex = true
	case b == reportVersion:
		d.command, d.need = b, 2
	case b&0xF0 == digitalMessage, b&0xF0 == analogMessage:
		d.command, d.need = b, 2
	default:
	}
}

func (d *decoder) channelMessage() message {
	msg := message{command: d.command, data: append([]byte(nil), d.data...)}
	if d.command < 0xF0 {
		msg.command = d.command & 0xF0
		msg.channel = int(d.command & 0x0F)
	}
	return msg
}

func (d *decoder) reset() {
	d.command = 0
	d.need = 0
	d.inSysex = false
	d.data = d.data[:0]
}

// decodeString decodes text sent as pairs of 7-bit bytes, LSB first.
func decodeString(data []byte) string {
	var sb strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		sb.WriteByte(byte(board.FromTwoBytes(data[i], data[i+1])))
	}
	return sb.String()
}
