package robot

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/arduinohub/components/arduino"
	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/components/board/fake"
	"go.viam.com/arduinohub/config"
	"go.viam.com/arduinohub/logging"
	arduinosvc "go.viam.com/arduinohub/services/arduino"
)

func fakeConfig() *config.Config {
	return &config.Config{
		Fake: true,
		Arduino: &config.Arduino{
			Devices:        []string{"/dev/ttyUSB0"},
			Types:          []string{"Standard"},
			SamplingMillis: []int{500},
		},
		Components: []config.Component{
			{Name: "door", Type: arduino.DigitalSensorType, Attributes: map[string]interface{}{"pin": 2.0}},
			{Name: "led", Type: arduino.DigitalActuatorType, Attributes: map[string]interface{}{"pin": 13.0}},
		},
	}
}

// recordingOpener opens fake boards and keeps the last one.
func recordingOpener(fb **fake.Board) arduinosvc.Option {
	return arduinosvc.WithOpener(func(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error) {
		b, err := fake.NewBoard(boardType)
		*fb = b
		return b, err
	})
}

func TestRobotLifecycle(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	var fb *fake.Board
	r, err := New(context.Background(), fakeConfig(), logger, recordingOpener(&fb))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Service().Present(0), test.ShouldBeTrue)
	test.That(t, r.ComponentNames(), test.ShouldResemble, []string{"door", "led"})

	comp, ok := r.ComponentByName("door")
	test.That(t, ok, test.ShouldBeTrue)
	door := comp.(*arduino.DigitalSensor)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.That(t, fb.Inject(ctx, board.Digital, 2, true), test.ShouldBeNil)
	open, ok := door.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, open, test.ShouldBeTrue)

	comp, ok = r.ComponentByName("led")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, comp.(*arduino.DigitalActuator).SetStatus(ctx, true), test.ShouldBeNil)
	test.That(t, fb.Writes(), test.ShouldResemble, []fake.WriteCall{{Desc: board.DigitalOutput(13), Value: true}})

	test.That(t, fb.FailIterate(ctx, errors.New("cable pulled")), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("board is no longer being read").Len(), test.ShouldEqual, 1)
		state, err := r.Service().PollerState(0)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, state, test.ShouldEqual, arduinosvc.PollerStopped)
	})

	r.LogStatus()
	status := logs.FilterMessage("device status").All()
	test.That(t, status, test.ShouldHaveLength, 1)
	test.That(t, status[0].ContextMap()["present"], test.ShouldEqual, true)
	test.That(t, status[0].ContextMap()["poller"], test.ShouldEqual, "stopped")

	test.That(t, r.Close(context.Background()), test.ShouldBeNil)
	test.That(t, fb.CloseCount.Load(), test.ShouldEqual, int32(1))
	pin, ok := fb.PinFor(board.Digital, 2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pin.NumCallbacks(), test.ShouldEqual, 0)
}

func TestRobotFakeWithoutDevices(t *testing.T) {
	r, err := New(context.Background(), fakeConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Service().Present(0), test.ShouldBeTrue)
	test.That(t, r.Close(context.Background()), test.ShouldBeNil)
}

func TestRobotComponentFailureTearsDown(t *testing.T) {
	cfg := fakeConfig()
	cfg.Components = append(cfg.Components, config.Component{
		Name: "fan", Type: arduino.PWMActuatorType, Attributes: map[string]interface{}{"pin": 4.0},
	})
	var fb *fake.Board
	_, err := New(context.Background(), cfg, logging.NewTestLogger(t), recordingOpener(&fb))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `failed to start component "fan"`)
	test.That(t, errors.Is(err, board.ErrUnsupportedMode), test.ShouldBeTrue)
	test.That(t, fb.CloseCount.Load(), test.ShouldEqual, int32(1))

	pin, ok := fb.PinFor(board.Digital, 2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pin.NumCallbacks(), test.ShouldEqual, 0)
}

func TestRobotAbsentDevice(t *testing.T) {
	cfg := fakeConfig()
	cfg.Fake = false
	cfg.Arduino.Devices = []string{"/dev/arduinohub-test-missing"}
	r, err := New(context.Background(), cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Service().Present(0), test.ShouldBeFalse)

	comp, ok := r.ComponentByName("led")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, comp.(*arduino.DigitalActuator).SetStatus(context.Background(), true), test.ShouldBeNil)
	test.That(t, r.Close(context.Background()), test.ShouldBeNil)
}
