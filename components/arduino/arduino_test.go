package arduino

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/components/board/fake"
	"go.viam.com/arduinohub/logging"
	arduinosvc "go.viam.com/arduinohub/services/arduino"
)

func newTestHub(t *testing.T) (*arduinosvc.Service, *fake.Board) {
	t.Helper()
	var fb *fake.Board
	opener := func(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error) {
		b, err := fake.NewBoard(boardType)
		fb = b
		return b, err
	}
	cfg := arduinosvc.Config{
		Devices:        []string{"/dev/ttyUSB0"},
		Types:          []board.Type{board.TypeStandard},
		SamplingMillis: []int{100},
	}
	svc, err := arduinosvc.New(context.Background(), cfg, logging.NewTestLogger(t),
		arduinosvc.WithOpener(opener), arduinosvc.WithoutAccessCheck())
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, svc.Close(context.Background()), test.ShouldBeNil)
	})
	return svc, fb
}

func injectCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRegisteredTypes(t *testing.T) {
	test.That(t, RegisteredTypes(), test.ShouldResemble, []string{
		AnalogSensorType, DigitalActuatorType, DigitalSensorType, PWMActuatorType, ServoActuatorType,
	})
	test.That(t, func() {
		Register(AnalogSensorType, Registration{})
	}, test.ShouldPanic)
}

func TestDecodeAttributes(t *testing.T) {
	attrs, err := DecodeAttributes(ServoActuatorType, "components.0", map[string]interface{}{
		"device": 1.0,
		"pin":    9.0,
	})
	test.That(t, err, test.ShouldBeNil)
	servo, err := NativeAttributes[*ServoAttributes](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, servo.Device, test.ShouldEqual, 1)
	test.That(t, servo.pin(), test.ShouldEqual, 9)
	test.That(t, servo.MinPulse, test.ShouldEqual, board.DefaultServoMinPulse)
	test.That(t, servo.MaxPulse, test.ShouldEqual, board.DefaultServoMaxPulse)
	test.That(t, servo.Angle, test.ShouldEqual, 0)

	_, err = NativeAttributes[*PinAttributes](attrs)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeAttributes(DigitalSensorType, "components.1", map[string]interface{}{"device": 0.0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "components.1")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"pin" is required`)

	_, err = DecodeAttributes(DigitalSensorType, "components.1", map[string]interface{}{"pin": 2.0, "colour": "red"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "colour")

	_, err = DecodeAttributes(ServoActuatorType, "components.2", map[string]interface{}{"pin": 9.0, "angle": 200.0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "angle")

	_, err = DecodeAttributes(ServoActuatorType, "components.2", map[string]interface{}{
		"pin": 9.0, "min_pulse": 2400.0, "max_pulse": 544.0,
	})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeAttributes("stepper", "components.3", nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown component type "stepper"`)
}

func TestSensors(t *testing.T) {
	hub, fb := newTestHub(t)
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	fb.Set(board.Analog, 3, 0.42)
	attrs, err := DecodeAttributes(AnalogSensorType, "light", map[string]interface{}{"pin": 3.0})
	test.That(t, err, test.ShouldBeNil)
	comp, err := New(AnalogSensorType, "light", attrs, hub, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Name(), test.ShouldEqual, "light")
	light := comp.(*AnalogSensor)

	_, ok := light.Value()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, light.Start(ctx), test.ShouldBeNil)
	value, ok := light.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, 0.42)

	button := NewDigitalSensor("button", 0, 2, hub, logger)
	var changes []interface{}
	button.OnChange(func(v interface{}) { changes = append(changes, v) })
	test.That(t, button.Start(ctx), test.ShouldBeNil)
	_, ok = button.Value()
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, fb.Inject(injectCtx(t), board.Digital, 2, true), test.ShouldBeNil)
	pressed, ok := button.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pressed, test.ShouldBeTrue)
	test.That(t, changes, test.ShouldResemble, []interface{}{true})

	test.That(t, button.Close(ctx), test.ShouldBeNil)
	test.That(t, fb.Inject(injectCtx(t), board.Digital, 2, false), test.ShouldBeNil)
	pressed, _ = button.Value()
	test.That(t, pressed, test.ShouldBeTrue)
	test.That(t, light.Close(ctx), test.ShouldBeNil)
}

func TestActuators(t *testing.T) {
	hub, fb := newTestHub(t)
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	led := NewDigitalActuator("led", 0, 13, hub, logger)
	err := led.SetStatus(ctx, true)
	test.That(t, errors.Is(err, arduinosvc.ErrActuatorNotConfigured), test.ShouldBeTrue)
	_, set := led.Status()
	test.That(t, set, test.ShouldBeFalse)

	test.That(t, led.Start(ctx), test.ShouldBeNil)
	test.That(t, led.SetStatus(ctx, true), test.ShouldBeNil)
	value, set := led.Status()
	test.That(t, set, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, true)

	fan := NewPWMActuator("fan", 0, 5, hub, logger)
	test.That(t, fan.Start(ctx), test.ShouldBeNil)
	test.That(t, fan.SetStatus(ctx, 0.8), test.ShouldBeNil)
	test.That(t, errors.Is(fan.SetStatus(ctx, 1.2), board.ErrInvalidValue), test.ShouldBeTrue)
	value, _ = fan.Status()
	test.That(t, value, test.ShouldEqual, 0.8)

	attrs, err := DecodeAttributes(ServoActuatorType, "arm", map[string]interface{}{"pin": 10.0, "angle": 30.0})
	test.That(t, err, test.ShouldBeNil)
	comp, err := New(ServoActuatorType, "arm", attrs, hub, logger)
	test.That(t, err, test.ShouldBeNil)
	arm := comp.(*ServoActuator)
	test.That(t, arm.Start(ctx), test.ShouldBeNil)
	value, set = arm.Status()
	test.That(t, set, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, 30)
	test.That(t, arm.SetStatus(ctx, 120), test.ShouldBeNil)

	test.That(t, fb.Servos(), test.ShouldResemble, []fake.ServoCall{{Pin: 10, MinPulse: 544, MaxPulse: 2400, Angle: 30}})
	test.That(t, fb.Writes(), test.ShouldResemble, []fake.WriteCall{
		{Desc: board.DigitalOutput(13), Value: true},
		{Desc: board.PWMOutput(5), Value: 0.8},
		{Desc: board.ServoOutput(10), Value: 30},
		{Desc: board.ServoOutput(10), Value: 120},
	})

	test.That(t, led.Close(ctx), test.ShouldBeNil)
	err = led.SetStatus(ctx, false)
	test.That(t, errors.Is(err, arduinosvc.ErrActuatorNotConfigured), test.ShouldBeTrue)
}
