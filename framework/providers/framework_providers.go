package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-injecting/framework/config"
	"github.com/km-arc/go-injecting/framework/container"
	"github.com/km-arc/go-injecting/framework/metrics"
	"github.com/km-arc/go-injecting/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded configuration and, when
// Container.ConstantsFile is set, every constant of that YAML manifest.
//
// Bound names:
//   - "config"  → *config.Config
//   - one constant per top-level key of the manifest
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	if err := app.Constant("config", p.Config); err != nil {
		return err
	}
	if p.Config == nil || p.Config.Container.ConstantsFile == "" {
		return nil
	}
	constants, err := config.LoadConstants(p.Config.Container.ConstantsFile)
	if err != nil {
		return err
	}
	return BindConstants(app, constants)
}

// BindConstants registers every entry of constants, in name order.
func BindConstants(app *container.Container, constants map[string]any) error {
	names := make([]string, 0, len(constants))
	for name := range constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := app.Constant(name, constants[name]); err != nil {
			return fmt.Errorf("constant %s: %w", name, err)
		}
	}
	return nil
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger.
//
// Bound names:
//   - "logger"  → logr.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger logr.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	return app.Constant("logger", p.Logger)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the resolution metrics collector and, on
// boot, exports the container's binding and loading gauges.
//
// Bound names:
//   - "metrics"  → *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(app *container.Container) error {
	return app.Constant("metrics", p.Collector)
}

func (p *MetricsServiceProvider) Boot(_ context.Context, app *container.Container) error {
	return p.Collector.Watch(app)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router with the inspection
// endpoints mounted. It is deferred: nothing is built until "router" is
// first resolved.
//
// Bound names:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) IsDeferred() bool   { return true }
func (p *RoutingServiceProvider) Provides() []string { return []string{"router"} }

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	return app.Service("router", container.Fn([]string{"logger", app.InjectorName(), "metrics"},
		func(_ context.Context, a container.Args) (any, error) {
			log, err := container.Arg[logr.Logger](a, 0)
			if err != nil {
				return nil, err
			}
			c, err := container.Arg[*container.Container](a, 1)
			if err != nil {
				return nil, err
			}
			col, err := container.Arg[*metrics.Collector](a, 2)
			if err != nil {
				return nil, err
			}

			r := routing.New(log)
			routing.Inspect(r, c, col.Handler())
			return r, nil
		}))
}
