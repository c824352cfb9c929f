package fake

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
)

func TestFakeBoardPins(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b, err := Open(context.Background(), "/dev/fake0", board.TypeStandard, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.(*Board).Path, test.ShouldEqual, "/dev/fake0")

	_, err = b.Pin(context.Background(), board.DigitalOutput(1))
	test.That(t, errors.Is(err, board.ErrInvalidPin), test.ShouldBeTrue)

	_, err = b.Pin(context.Background(), board.PWMOutput(4))
	test.That(t, errors.Is(err, board.ErrUnsupportedMode), test.ShouldBeTrue)

	led, err := b.Pin(context.Background(), board.DigitalOutput(13))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, led.Write(context.Background(), true), test.ShouldBeNil)
	test.That(t, errors.Is(led.Write(context.Background(), 0.5), board.ErrInvalidValue), test.ShouldBeTrue)

	again, err := b.Pin(context.Background(), board.DigitalInput(13))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, led)
	test.That(t, errors.Is(led.Write(context.Background(), true), board.ErrUnsupportedMode), test.ShouldBeTrue)

	writes := b.(*Board).Writes()
	test.That(t, writes, test.ShouldResemble, []WriteCall{{board.DigitalOutput(13), true}})
}

func TestFakeBoardInject(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b, err := NewBoard(board.TypeStandard)
	test.That(t, err, test.ShouldBeNil)

	pin, err := b.Pin(context.Background(), board.AnalogInput(0))
	test.That(t, err, test.ShouldBeNil)
	_, ok := pin.Read()
	test.That(t, ok, test.ShouldBeFalse)

	var seen []interface{}
	pin.AddCallback(func(v interface{}) { seen = append(seen, v) })

	iterErr := make(chan error, 1)
	go func() {
		for {
			if err := b.Iterate(context.Background()); err != nil {
				iterErr <- err
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.That(t, b.Inject(ctx, board.Analog, 0, 0.25), test.ShouldBeNil)
	test.That(t, b.Inject(ctx, board.Analog, 0, 0.25), test.ShouldBeNil)
	test.That(t, b.Inject(ctx, board.Analog, 0, 0.5), test.ShouldBeNil)
	test.That(t, seen, test.ShouldResemble, []interface{}{0.25, 0.5})

	value, ok := pin.Read()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, 0.5)

	boom := errors.New("boom")
	test.That(t, b.FailIterate(ctx, boom), test.ShouldBeNil)
	test.That(t, <-iterErr, test.ShouldEqual, boom)
	test.That(t, b.Iterations.Load(), test.ShouldEqual, int64(4))
	logger.Debug("inject done")
}

func TestFakeBoardServoAndClose(t *testing.T) {
	b, err := NewBoard(board.TypeMega)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, b.ServoConfig(context.Background(), 9, 544, 2400, 90), test.ShouldBeNil)
	test.That(t, b.Servos(), test.ShouldResemble, []ServoCall{{9, 544, 2400, 90}})
	test.That(t, b.Writes(), test.ShouldResemble, []WriteCall{{board.ServoOutput(9), 90}})

	test.That(t, b.SendSysex(context.Background(), board.SysexSamplingInterval, board.ToTwoBytes(19)), test.ShouldBeNil)
	test.That(t, b.Sysex(), test.ShouldResemble, []SysexCall{{board.SysexSamplingInterval, []byte{19, 0}}})

	test.That(t, b.Close(context.Background()), test.ShouldBeNil)
	test.That(t, b.Close(context.Background()), test.ShouldBeNil)
	test.That(t, b.CloseCount.Load(), test.ShouldEqual, int32(2))
	test.That(t, b.Iterate(context.Background()), test.ShouldEqual, board.ErrClosed)
	test.That(t, b.Inject(context.Background(), board.Digital, 2, true), test.ShouldEqual, board.ErrClosed)
	_, err = b.Pin(context.Background(), board.DigitalInput(2))
	test.That(t, err, test.ShouldEqual, board.ErrClosed)
}
