// Package arduino provides the host side objects bound to board pins: sensors that follow an
// input pin and actuators that drive an output pin. Component types are looked up by name in a
// registry so they can be built from configuration.
package arduino

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/arduinohub/logging"
	arduinosvc "go.viam.com/arduinohub/services/arduino"
	"go.viam.com/arduinohub/utils"
)

// Hub is the part of the arduino service components talk to.
type Hub interface {
	SetupDigital(ctx context.Context, device, pin int) error
	SetupPWM(ctx context.Context, device, pin int) error
	SetupServo(ctx context.Context, device, pin, minPulse, maxPulse, angle int) error
	ChangeDigital(ctx context.Context, device, pin int, value interface{}) error
	CleanupDigitalActuator(device, pin int) error
	SubscribeAnalog(ctx context.Context, device, pin int, sensor arduinosvc.Sensor) error
	SubscribeDigital(ctx context.Context, device, pin int, sensor arduinosvc.Sensor) error
	UnsubscribeAnalog(device, pin int) error
	UnsubscribeDigital(device, pin int) error
}

var _ Hub = (*arduinosvc.Service)(nil)

// A Component is a configured sensor or actuator.
type Component interface {
	Name() string
	// Start binds the component to its pin.
	Start(ctx context.Context) error
	// Close releases the pin binding.
	Close(ctx context.Context) error
}

// Attributes are the type specific settings of a component.
type Attributes interface {
	Validate(path string) error
}

// A Constructor builds a component from its decoded attributes.
type Constructor func(name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error)

// A Registration describes one component type.
type Registration struct {
	// NewAttributes returns a pointer to attributes with their defaults set, ready to be decoded
	// into.
	NewAttributes func() Attributes
	Constructor   Constructor
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register adds a component type. It panics if the type is already registered or the
// registration is incomplete.
func Register(componentType string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[componentType]; ok {
		panic(errors.Errorf("trying to register two component types with same name: %s", componentType))
	}
	if reg.NewAttributes == nil || reg.Constructor == nil {
		panic(errors.Errorf("cannot register component type %s without attributes and constructor", componentType))
	}
	registry[componentType] = reg
}

// Lookup returns the registration of a component type.
func Lookup(componentType string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[componentType]
	return reg, ok
}

// RegisteredTypes returns the names of all registered component types, sorted.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DecodeAttributes decodes and validates the raw attributes of a component of the given type.
// path prefixes validation errors.
func DecodeAttributes(componentType, path string, raw map[string]interface{}) (Attributes, error) {
	reg, ok := Lookup(componentType)
	if !ok {
		return nil, errors.Errorf("%s: unknown component type %q", path, componentType)
	}
	attrs := reg.NewAttributes()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      attrs,
		ErrorUnused: true,
		Squash:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrapf(err, "%s: invalid attributes", path)
	}
	if err := attrs.Validate(path); err != nil {
		return nil, err
	}
	return attrs, nil
}

// New builds a component of the given type from already decoded attributes.
func New(componentType, name string, attrs Attributes, hub Hub, logger logging.Logger) (Component, error) {
	reg, ok := Lookup(componentType)
	if !ok {
		return nil, errors.Errorf("unknown component type %q", componentType)
	}
	return reg.Constructor(name, attrs, hub, logger.Sublogger(name))
}

// NativeAttributes asserts attrs to the concrete attributes type of a constructor.
func NativeAttributes[T Attributes](attrs Attributes) (T, error) {
	return utils.AssertType[T](attrs)
}
