// Package config defines the structures to configure the hub, and how to read them from a file.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"go.viam.com/arduinohub/components/arduino"
	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/logging"
	arduinosvc "go.viam.com/arduinohub/services/arduino"
)

// Defaults for an omitted arduino section.
var (
	DefaultDevices        = []string{"/dev/ttyUSB0"}
	DefaultTypes          = []string{string(board.TypeStandard)}
	DefaultSamplingMillis = []int{500}
)

// Config describes the boards to manage and the components bound to their pins.
type Config struct {
	ConfigFilePath string                        `json:"-"`
	Debug          bool                          `json:"debug,omitempty"`
	Fake           bool                          `json:"fake,omitempty"`
	Arduino        *Arduino                      `json:"arduino,omitempty"`
	Components     []Component                   `json:"components,omitempty"`
	LogConfig      []logging.LoggerPatternConfig `json:"log,omitempty"`
}

// Arduino configures the board registry. The lists are parallel: index i of each describes
// device i.
type Arduino struct {
	Devices        []string `json:"devices"`
	Types          []string `json:"types"`
	SamplingMillis []int    `json:"sampling_ms"`
	// BootWaitMillis overrides how long to wait for a board to reset after opening its port.
	BootWaitMillis *int `json:"boot_wait_ms,omitempty"`
}

// Component is a sensor or actuator bound to a pin.
type Component struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	ConvertedAttributes arduino.Attributes `json:"-"`
}

// Ensure fills in defaults and validates the whole config, converting component attributes.
func (c *Config) Ensure() error {
	if c.Arduino == nil {
		c.Arduino = &Arduino{
			Devices:        append([]string(nil), DefaultDevices...),
			Types:          append([]string(nil), DefaultTypes...),
			SamplingMillis: append([]int(nil), DefaultSamplingMillis...),
		}
	}
	if err := c.Arduino.Validate("arduino"); err != nil {
		return err
	}

	for idx := range c.Components {
		if err := c.Components[idx].Validate(fmt.Sprintf("%s.%d", "components", idx)); err != nil {
			return err
		}
	}
	names := lo.Map(c.Components, func(comp Component, _ int) string { return comp.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return errors.Errorf("duplicate component names: %v", dups)
	}
	for idx, comp := range c.Components {
		if device := deviceOf(comp.ConvertedAttributes); device >= len(c.Arduino.Devices) {
			return goutils.NewConfigValidationError(fmt.Sprintf("%s.%d", "components", idx),
				errors.Errorf("device %d is not configured, have %d devices", device, len(c.Arduino.Devices)))
		}
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (a *Arduino) Validate(path string) error {
	svcConfig, err := a.ServiceConfig()
	if err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if err := svcConfig.Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if a.BootWaitMillis != nil && *a.BootWaitMillis < 0 {
		return goutils.NewConfigValidationError(path, errors.New("boot_wait_ms must not be negative"))
	}
	return nil
}

// ServiceConfig converts the section to the service's configuration, parsing board types.
func (a *Arduino) ServiceConfig() (arduinosvc.Config, error) {
	types := make([]board.Type, 0, len(a.Types))
	for _, name := range a.Types {
		t, err := board.ParseType(name)
		if err != nil {
			return arduinosvc.Config{}, err
		}
		types = append(types, t)
	}
	return arduinosvc.Config{
		Devices:        a.Devices,
		Types:          types,
		SamplingMillis: a.SamplingMillis,
	}, nil
}

// BootWait returns the configured boot wait, if any.
func (a *Arduino) BootWait() (time.Duration, bool) {
	if a.BootWaitMillis == nil {
		return 0, false
	}
	return time.Duration(*a.BootWaitMillis) * time.Millisecond, true
}

// Validate ensures all parts of the config are valid and converts the attributes.
func (c *Component) Validate(path string) error {
	if c.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if c.Type == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	}
	attrs, err := arduino.DecodeAttributes(c.Type, path, c.Attributes)
	if err != nil {
		return err
	}
	c.ConvertedAttributes = attrs
	return nil
}

func deviceOf(attrs arduino.Attributes) int {
	switch a := attrs.(type) {
	case *arduino.PinAttributes:
		return a.Device
	case *arduino.ServoAttributes:
		return a.Device
	default:
		return 0
	}
}
