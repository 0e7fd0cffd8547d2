package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-injecting/framework/config"
	"github.com/km-arc/go-injecting/framework/container"
	"github.com/km-arc/go-injecting/framework/logging"
	"github.com/km-arc/go-injecting/framework/metrics"
	"github.com/km-arc/go-injecting/framework/providers"
	"github.com/km-arc/go-injecting/framework/routing"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container and ProviderRegistry so user code can call
// app.Constant(), app.Service(), app.Get() directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config *config.Config
	log    logr.Logger
}

// New loads configuration, builds the logger and metrics collector, creates
// the container and registers the framework providers.
func New(ctx context.Context, envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	return NewWithLogger(ctx, cfg, log)
}

// NewWithLogger is New with an already loaded config and logger.
func NewWithLogger(ctx context.Context, cfg *config.Config, log logr.Logger) (*Application, error) {
	collector := metrics.NewCollector()
	c := container.New(
		container.WithInjectorName(cfg.Container.InjectorName),
		container.WithLogger(log),
		container.WithObserver(collector),
	)

	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		log:       log.WithName(cfg.App.Name),
	}

	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: log},
		&providers.MetricsServiceProvider{Collector: collector},
		&providers.RoutingServiceProvider{},
	} {
		if err := app.Register(ctx, p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(ctx context.Context, provider container.ServiceProvider) error {
	return a.Providers.Register(ctx, provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() logr.Logger { return a.log }

// Router resolves *routing.Router from the container.
func (a *Application) Router(ctx context.Context) (*routing.Router, error) {
	return container.Resolve[*routing.Router](ctx, a.Container, "router")
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until
// ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			return err
		}
	}
	// startup resolution finishes even when ctx is already done
	router, err := a.Router(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("app: resolve router: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + a.config.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "env", a.config.App.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
