package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// DefaultInjectorName is the name a container registers itself under.
const DefaultInjectorName = "$injector"

// Observer is told about every finished service load.
type Observer interface {
	ObserveResolution(name string, elapsed time.Duration, err error)
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is a registry of named constants and services plus the engine
// that resolves callables against it.
//
// It supports:
//   - Constant / Service / Register (dispatch by callable-ness)
//   - Get / GetAll / Invoke, all returning a *Future
//   - Locals (per-call overrides) and per-Injectable resolvers
//   - Member injection and the Initializer hook
//   - Circular dependency detection
//   - Contextual resolvers via When(...).Needs(...).Give(...)
//
// The container is registered in itself under its injector name, so any
// factory can depend on "$injector" and call back into it.
type Container struct {
	id         string
	injector   string
	registry   *registry
	signatures SignatureProvider
	log        logr.Logger
	observer   Observer

	loadingOnce sync.Once
	loading     *loadingSet
	waits       *waitGraph
	nodes       atomic.Uint64
}

// Option configures a Container.
type Option func(*Container)

// WithInjectorName changes the self-name (default "$injector").
func WithInjectorName(name string) Option {
	return func(c *Container) {
		if name != "" {
			c.injector = name
		}
	}
}

// WithLogger sets the logger used for warnings and load traces.
func WithLogger(l logr.Logger) Option {
	return func(c *Container) { c.log = l }
}

// WithSignatures replaces the provider used for plain Go funcs.
func WithSignatures(p SignatureProvider) Option {
	return func(c *Container) {
		if p != nil {
			c.signatures = p
		}
	}
}

// WithObserver reports every service load to o.
func WithObserver(o Observer) Option {
	return func(c *Container) { c.observer = o }
}

// New creates a container and binds it to its injector name.
//
//	c := container.New()
//	c.Constant("name", "jack")
func New(opts ...Option) *Container {
	c := &Container{
		id:         uuid.NewString(),
		injector:   DefaultInjectorName,
		signatures: DefaultSignatures,
		log:        logr.Discard(),
		waits:      newWaitGraph(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithName("container").WithValues("container", c.id)
	c.registry = newRegistry(c.injector)

	// The bootstrap registration is the only one allowed to use the self-name.
	if err := c.registry.put(&record{name: c.injector, kind: kindConstant, value: c}, true); err != nil {
		panic(err)
	}
	return c
}

// ID returns the container's unique id.
func (c *Container) ID() string { return c.id }

// InjectorName returns the name the container is registered under.
func (c *Container) InjectorName() string { return c.injector }

// ── Registration ──────────────────────────────────────────────────────────────

type registration struct {
	overwritable bool
	injections   []string
}

// RegisterOption tunes one registration.
type RegisterOption func(*registration)

// Overwritable lets a later registration of the same name replace this one.
func Overwritable() RegisterOption {
	return func(r *registration) { r.overwritable = true }
}

// Injections overrides the dependency signature of a service.
func Injections(names ...string) RegisterOption {
	return func(r *registration) { r.injections = append([]string{}, names...) }
}

func collect(opts []RegisterOption) registration {
	var r registration
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Register binds v as a service when it is callable (an Injectable, a Go func
// or an array-style []any{"dep", ..., fn}) and as a constant otherwise.
//
//	c.Register("name", "jack")
//	c.Register("person", []any{"name", func(n string) *Person { return &Person{Name: n} }})
func (c *Container) Register(name string, v any, opts ...RegisterOption) error {
	array := isArrayInjection(v)
	if array {
		c.log.Info("you are going to register an array; it will be treated as a service. Call Constant to register it as a value",
			"name", name)
	}
	if array || isCallable(v) {
		return c.Service(name, v, opts...)
	}
	return c.Constant(name, v, opts...)
}

// Constant binds a value that is never recomputed.
func (c *Container) Constant(name string, value any, opts ...RegisterOption) error {
	if name == "" {
		return ErrEmptyName
	}
	reg := collect(opts)
	return c.registry.put(&record{
		name:         name,
		kind:         kindConstant,
		overwritable: reg.overwritable,
		value:        value,
	}, false)
}

// Service binds a lazily built value. The factory runs at most once per
// locals signature; it never runs if nothing depends on name.
func (c *Container) Service(name string, factory any, opts ...RegisterOption) error {
	if name == "" {
		return ErrEmptyName
	}
	reg := collect(opts)
	inj, err := normalize(factory, reg.injections, c.signatures)
	if err != nil {
		return fmt.Errorf("service %s: %w", name, err)
	}
	return c.registry.put(&record{
		name:         name,
		kind:         kindService,
		overwritable: reg.overwritable,
		injectable:   inj,
		cache:        newMemo(),
	}, false)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves a registered name. Errors, including NotFoundError, are
// reported through the Future. Factories calling back into the container
// should pass the ctx they received: cycles are traced through it.
func (c *Container) Get(ctx context.Context, name string, locals Locals) *Future {
	return c.get(detach(ctx), name, locals)
}

// GetAll resolves several names concurrently; the Future yields []any in
// the order of names.
func (c *Container) GetAll(ctx context.Context, names []string, locals Locals) *Future {
	ctx = detach(ctx)
	futures := make([]*Future, len(names))
	for i, name := range names {
		futures[i] = c.get(ctx, name, locals)
	}
	return Go(func() (any, error) {
		values, err := awaitAll(ctx, futures)
		if err != nil {
			return nil, err
		}
		return values, nil
	})
}

type invocation struct {
	locals   Locals
	receiver any
}

// InvokeOption tunes one Invoke call.
type InvokeOption func(*invocation)

// WithLocals supplies per-call overrides.
func WithLocals(locals Locals) InvokeOption {
	return func(i *invocation) { i.locals = locals }
}

// WithReceiver passes a receiver the body can read with Args.Receiver.
func WithReceiver(receiver any) InvokeOption {
	return func(i *invocation) { i.receiver = receiver }
}

// Invoke resolves target's dependencies and calls it. target may be an
// Injectable, a Go func or an array-style declaration. Invoke never fails
// synchronously.
//
//	f := c.Invoke(ctx, container.Fn([]string{"person"}, func(ctx context.Context, a container.Args) (any, error) {
//	    return a.At(0).(*Person).Talk(), nil
//	}))
//	talk, err := f.Await(ctx)
func (c *Container) Invoke(ctx context.Context, target any, opts ...InvokeOption) *Future {
	var inv invocation
	for _, opt := range opts {
		opt(&inv)
	}
	return c.invoke(detach(ctx), target, inv.receiver, inv.locals)
}

// detach keeps ctx values but drops cancellation: factories are shared
// through the memo and always run to completion.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Binding describes one registered name.
type Binding struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Overwritable bool     `json:"overwritable"`
	Deps         []string `json:"deps,omitempty"`
	Cached       int      `json:"cached"`
}

// Bound reports whether name is registered.
func (c *Container) Bound(name string) bool {
	_, ok := c.registry.lookup(name)
	return ok
}

// Bindings returns every registration sorted by name.
func (c *Container) Bindings() []Binding {
	records := c.registry.snapshot()
	out := make([]Binding, 0, len(records))
	for _, rec := range records {
		b := Binding{Name: rec.name, Kind: rec.kind.String(), Overwritable: rec.overwritable}
		if rec.kind == kindService {
			b.Deps = append([]string(nil), rec.injectable.Deps...)
			b.Cached = rec.cache.len()
		}
		out = append(out, b)
	}
	return out
}

// Loading returns the services whose factories are running right now.
func (c *Container) Loading() []string {
	return c.loadingSet().snapshot()
}

// Forget drops the cached results of a service so its factory runs again
// on the next resolution. It reports whether name is a service.
func (c *Container) Forget(name string) bool {
	rec, ok := c.registry.lookup(name)
	if !ok || rec.kind != kindService {
		return false
	}
	rec.cache.reset()
	return true
}

// Destroy removes every registration, the container itself included.
func (c *Container) Destroy() {
	c.registry.clear()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve gets name and asserts the result to T.
//
//	mailer, err := container.Resolve[*Mailer](ctx, c, "mailer")
func Resolve[T any](ctx context.Context, c *Container, name string) (T, error) {
	return Await[T](ctx, c.Get(ctx, name, nil))
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, c *Container, name string) T {
	v, err := Resolve[T](ctx, c, name)
	if err != nil {
		panic(fmt.Sprintf("container: MustResolve[%s](%s): %v", typeName[T](), name, err))
	}
	return v
}
