package container

import (
	"context"
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related bindings.
//
// Register only binds; it must not resolve anything. Boot runs after every
// eager provider has registered, so it may resolve freely.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(c *container.Container) error {
//	    return c.Service("mailer", container.Fn([]string{"config"}, newMailer))
//	}
type ServiceProvider interface {
	Register(c *Container) error
	Boot(ctx context.Context, c *Container) error

	// Provides lists the names a deferred provider binds.
	Provides() []string

	// IsDeferred makes the provider register only when one of its
	// Provides() names is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider gives no-op Boot, Provides and IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []string                     { return nil }
func (p *BaseProvider) IsDeferred() bool                       { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots providers against one container.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	registered map[ServiceProvider]bool
	deferred   map[ServiceProvider]*deferredLoad
	booted     bool
}

// deferredLoad registers a deferred provider exactly once; callers racing on
// the first resolution wait for the winner.
type deferredLoad struct {
	once sync.Once
	err  error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		deferred:   make(map[ServiceProvider]*deferredLoad),
	}
}

// Register adds a provider. Eager providers register at once (and boot when
// the registry already booted); registering the same provider twice is a
// no-op.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	if provider.IsDeferred() {
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("provider %T: register: %w", provider, err)
	}
	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("provider %T: boot: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred binds an overwritable placeholder for each provided
// name. The first resolution registers the provider, which replaces the
// placeholders, and then forwards to the real binding.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	r.mu.Lock()
	r.deferred[provider] = &deferredLoad{}
	r.mu.Unlock()

	for _, name := range provider.Provides() {
		abs := name
		placeholder := Fn(nil, func(ctx context.Context, _ Args) (any, error) {
			if err := r.loadDeferred(ctx, provider); err != nil {
				return nil, err
			}
			fr := frameFrom(ctx)
			return r.app.get(withFrame(ctx, fr.pop()), abs, fr.locals).Await(ctx)
		})
		if err := r.app.Service(abs, placeholder, Overwritable()); err != nil {
			return fmt.Errorf("provider %T: defer %s: %w", provider, abs, err)
		}
	}
	return nil
}

func (r *ProviderRegistry) loadDeferred(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	state := r.deferred[provider]
	r.mu.Unlock()

	state.once.Do(func() {
		if err := provider.Register(r.app); err != nil {
			state.err = fmt.Errorf("provider %T: register: %w", provider, err)
			return
		}
		if r.Booted() {
			if err := provider.Boot(ctx, r.app); err != nil {
				state.err = fmt.Errorf("provider %T: boot: %w", provider, err)
			}
		}
	})
	return state.err
}

// Boot boots every eager provider once. The first error stops booting.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("provider %T: boot: %w", provider, err)
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
