// Package container provides a named dependency injection container with
// asynchronous resolution and a Service Provider system.
//
// # Overview
//
// Every dependency is identified by a string name. A name is bound either to
// a constant (returned as-is) or to a service: a factory whose dependencies
// are themselves names. Services are lazy; a factory runs the first time
// something depends on it and its result is memoized per locals signature.
//
// All resolution is asynchronous. Get, GetAll and Invoke return a *Future
// right away and report every failure (missing names, cycles, factory
// errors, panics) through it.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(ctx, &MyProvider{})
//  3. Boot: registry.Boot(ctx)
//  4. Resolve: container.Resolve[*Mailer](ctx, c, "mailer")
//
// # Registration
//
//	// Constant
//	c.Constant("name", "jack")
//
//	// Service with an explicit signature
//	c.Service("person", container.Fn([]string{"name", "place"},
//	    func(ctx context.Context, a container.Args) (any, error) {
//	        return &Person{Name: a.String(0), Place: a.String(1)}, nil
//	    }))
//
//	// Array-style declaration of a plain func
//	c.Register("greeting", []any{"name", func(name string) string { return "hi " + name }})
//
//	// Plain func whose dependencies are read from struct tags
//	c.Register("mailer", func(ctx context.Context, d struct {
//	    Config *config.Config `inject:"config"`
//	}) (*Mailer, error) {
//	    return NewMailer(d.Config)
//	})
//
// A name can be registered once unless the first registration passed
// Overwritable(). The container registers itself as "$injector" (see
// WithInjectorName); that name is reserved.
//
// # Resolving
//
//	v, err := c.Get(ctx, "person", nil).Await(ctx)
//
//	// Generic
//	p, err := container.Resolve[*Person](ctx, c, "person")
//
//	// Call an arbitrary injectable, overriding "place" for this call only
//	talk, err := c.Invoke(ctx, talkFn, container.WithLocals(container.Locals{"place": "London"})).Await(ctx)
//
// Dependencies are looked up in this order: the Injectable's own resolvers,
// then the call's locals, then the registry. A service reached again on its
// own resolution path fails with a CircularDependencyError.
//
// # Members and initialization
//
// Injectable.WithMembers names dependencies assigned onto the produced
// instance after the factory returns, either through MemberSetter or onto
// exported struct fields. If the instance implements Initializer its
// Initialize method runs last and the resolution settles only after it.
//
// # Contextual resolvers
//
//	c.When("photoController").Needs("filesystem").Give(func(ctx context.Context) (any, error) {
//	    return s3.New(), nil
//	})
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Service("mailer", container.Fn([]string{"config"}, newMailer))
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(ctx, &AppServiceProvider{})
//	registry.Boot(ctx)
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) error {
//	    return app.Service("heavy", container.Fn(nil, heavySetup)) // registered on first Get("heavy")
//	}
package container
