// Package robot assembles a running hub from a config: the arduino service with its boards, and
// the sensors and actuators bound to their pins.
package robot

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/arduinohub/components/arduino"
	"go.viam.com/arduinohub/components/board"
	"go.viam.com/arduinohub/components/board/fake"
	"go.viam.com/arduinohub/components/board/firmata"
	"go.viam.com/arduinohub/config"
	"go.viam.com/arduinohub/logging"
	arduinosvc "go.viam.com/arduinohub/services/arduino"
	"go.viam.com/arduinohub/utils"
)

// A Robot is a running hub.
type Robot struct {
	logger     logging.Logger
	service    *arduinosvc.Service
	components []arduino.Component
	byName     map[string]arduino.Component
	workers    *utils.StoppableWorkers
}

// New builds the service described by cfg, then builds and starts every component in config
// order. Extra service options are applied after the ones derived from cfg. If anything fails,
// whatever was started is torn down again.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...arduinosvc.Option) (*Robot, error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	if err := logging.RegisterConfig(cfg.LogConfig, logger); err != nil {
		return nil, err
	}
	svcConfig, err := cfg.Arduino.ServiceConfig()
	if err != nil {
		return nil, err
	}

	svc, err := arduinosvc.New(ctx, svcConfig, logger, append(serviceOptions(cfg), opts...)...)
	if err != nil {
		return nil, err
	}
	r := &Robot{
		logger:  logger,
		service: svc,
		byName:  map[string]arduino.Component{},
	}
	r.workers = utils.NewStoppableWorkers(r.watchFaults)

	componentLogger := logger.Sublogger("components")
	for _, conf := range cfg.Components {
		comp, err := arduino.New(conf.Type, conf.Name, conf.ConvertedAttributes, svc, componentLogger)
		if err == nil {
			err = comp.Start(ctx)
		}
		if err != nil {
			return nil, multierr.Combine(errors.Wrapf(err, "failed to start component %q", conf.Name), r.Close(ctx))
		}
		r.components = append(r.components, comp)
		r.byName[conf.Name] = comp
	}
	logger.CInfow(ctx, "hub running", "devices", svc.Len(), "components", len(r.components))
	return r, nil
}

func serviceOptions(cfg *config.Config) []arduinosvc.Option {
	if cfg.Fake {
		return []arduinosvc.Option{arduinosvc.WithOpener(fake.Open), arduinosvc.WithoutAccessCheck()}
	}
	if wait, ok := cfg.Arduino.BootWait(); ok {
		return []arduinosvc.Option{arduinosvc.WithOpener(firmataOpener(wait))}
	}
	return nil
}

func firmataOpener(bootWait time.Duration) arduinosvc.Opener {
	return func(ctx context.Context, path string, boardType board.Type, logger logging.Logger) (board.Board, error) {
		opts := firmata.DefaultOptions()
		opts.BootWait = bootWait
		b, err := firmata.OpenWithOptions(ctx, path, boardType, opts, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// watchFaults logs poller faults until the robot closes.
func (r *Robot) watchFaults(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fault := <-r.service.Faults():
			r.logger.Errorw("board is no longer being read", "device", fault.Device, "path", fault.Path, "error", fault.Err)
		}
	}
}

// LogStatus logs the presence and poller state of every configured device.
func (r *Robot) LogStatus() {
	for device := 0; device < r.service.Len(); device++ {
		state, err := r.service.PollerState(device)
		if err != nil {
			continue
		}
		r.logger.Infow("device status", "device", device, "present", r.service.Present(device), "poller", state.String())
	}
}

// Service returns the arduino service.
func (r *Robot) Service() *arduinosvc.Service {
	return r.service
}

// ComponentByName returns the component with the given name.
func (r *Robot) ComponentByName(name string) (arduino.Component, bool) {
	comp, ok := r.byName[name]
	return comp, ok
}

// ComponentNames returns the names of all running components, sorted.
func (r *Robot) ComponentNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the components in reverse start order, then the service.
func (r *Robot) Close(ctx context.Context) error {
	var err error
	for i := len(r.components) - 1; i >= 0; i-- {
		comp := r.components[i]
		err = multierr.Combine(err, errors.Wrapf(comp.Close(ctx), "failed to close component %q", comp.Name()))
	}
	r.components = nil
	r.workers.Stop()
	return multierr.Combine(err, r.service.Close(ctx))
}
