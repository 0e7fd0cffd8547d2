package container

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ── Resolution frame ──────────────────────────────────────────────────────────

// frame travels in the context handed to factories: the services under
// construction on this call chain and the locals of the call.
type frame struct {
	path   []string
	locals Locals
	// node is the load whose factory runs on this chain, zero outside one.
	node uint64
}

type frameKey struct{}

func frameFrom(ctx context.Context) frame {
	fr, _ := ctx.Value(frameKey{}).(frame)
	return fr
}

func withFrame(ctx context.Context, fr frame) context.Context {
	return context.WithValue(ctx, frameKey{}, fr)
}

func (f frame) enter(name string, node uint64, locals Locals) frame {
	path := make([]string, len(f.path), len(f.path)+1)
	copy(path, f.path)
	return frame{path: append(path, name), locals: locals, node: node}
}

// pop drops the innermost service from the path.
func (f frame) pop() frame {
	if len(f.path) == 0 {
		return f
	}
	return frame{path: f.path[:len(f.path)-1], locals: f.locals, node: f.node}
}

func (f frame) onPath(name string) bool {
	for _, n := range f.path {
		if n == name {
			return true
		}
	}
	return false
}

// ResolutionPath returns the services being constructed on the call chain
// that produced ctx, outermost first.
func ResolutionPath(ctx context.Context) []string {
	return append([]string(nil), frameFrom(ctx).path...)
}

// LocalsFrom returns the locals of the invocation that produced ctx.
func LocalsFrom(ctx context.Context) Locals {
	return frameFrom(ctx).locals
}

// ── Loading set ───────────────────────────────────────────────────────────────

// loadingSet tracks service names whose factories are running. Names are
// counted because one service may load under several locals signatures.
type loadingSet struct {
	mu    sync.Mutex
	names map[string]int
}

func (l *loadingSet) enter(name string) {
	l.mu.Lock()
	l.names[name]++
	l.mu.Unlock()
}

func (l *loadingSet) leave(name string) {
	l.mu.Lock()
	if l.names[name] <= 1 {
		delete(l.names, name)
	} else {
		l.names[name]--
	}
	l.mu.Unlock()
}

func (l *loadingSet) has(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.names[name] > 0
}

func (l *loadingSet) snapshot() []string {
	l.mu.Lock()
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	l.mu.Unlock()
	sort.Strings(out)
	return out
}

// ── Wait graph ────────────────────────────────────────────────────────────────

// waitGraph records which running loads wait on which. A wait that would
// close a loop is refused, so loads never block on each other forever.
type waitGraph struct {
	mu    sync.Mutex
	edges map[uint64]map[uint64]int
}

func newWaitGraph() *waitGraph {
	return &waitGraph{edges: make(map[uint64]map[uint64]int)}
}

// wait records that load from blocks on f, the future of load to, until f
// settles. It reports false if to already waits on from.
func (g *waitGraph) wait(from, to uint64, f *Future) bool {
	g.mu.Lock()
	if from == to || g.reaches(to, from) {
		g.mu.Unlock()
		return false
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[uint64]int)
	}
	g.edges[from][to]++
	g.mu.Unlock()

	go func() {
		<-f.Done()
		g.release(from, to)
	}()
	return true
}

func (g *waitGraph) release(from, to uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.edges[from]
	if out[to] <= 1 {
		delete(out, to)
	} else {
		out[to]--
	}
	if len(out) == 0 {
		delete(g.edges, from)
	}
}

// reaches must be called with g.mu held.
func (g *waitGraph) reaches(from, to uint64) bool {
	seen := make(map[uint64]bool)
	stack := []uint64{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for next := range g.edges[n] {
			stack = append(stack, next)
		}
	}
	return false
}

func (g *waitGraph) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

func (c *Container) loadingSet() *loadingSet {
	c.loadingOnce.Do(func() {
		c.loading = &loadingSet{names: make(map[string]int)}
	})
	return c.loading
}

// ── Engine ────────────────────────────────────────────────────────────────────

// get resolves one registered name. It never blocks: services load on their
// own goroutine behind the memo.
func (c *Container) get(ctx context.Context, name string, locals Locals) *Future {
	rec, ok := c.registry.lookup(name)
	if !ok {
		return Rejected(NotFoundError{Name: name})
	}
	if rec.kind == kindConstant {
		return Resolved(rec.value)
	}

	fr := frameFrom(ctx)
	if c.loadingSet().has(name) && fr.onPath(name) {
		return c.circular(fr, name)
	}

	f, _ := rec.cache.do(signatureKey(locals), func() *Future {
		return c.load(ctx, rec, locals)
	})
	// A load already running elsewhere may itself be waiting on this chain.
	if fr.node != 0 && !f.Settled() && !c.waits.wait(fr.node, f.node, f) {
		return c.circular(fr, name)
	}
	return f
}

func (c *Container) circular(fr frame, name string) *Future {
	path := append(append([]string(nil), fr.path...), name)
	c.log.V(1).Info("circular dependency", "name", name, "path", path)
	return Rejected(CircularDependencyError{Name: name, Path: path})
}

// load runs a service factory with its name marked as loading until the
// factory settles.
func (c *Container) load(ctx context.Context, rec *record, locals Locals) *Future {
	loading := c.loadingSet()
	loading.enter(rec.name)
	node := c.nodes.Add(1)
	inner := withFrame(ctx, frameFrom(ctx).enter(rec.name, node, locals))

	f := Go(func() (any, error) {
		start := time.Now()
		c.log.V(1).Info("loading service", "name", rec.name, "path", frameFrom(inner).path)

		v, err := c.call(inner, rec.injectable, nil, locals)

		loading.leave(rec.name)
		elapsed := time.Since(start)
		if err != nil {
			c.log.Error(err, "service failed", "name", rec.name, "duration", elapsed)
		} else {
			c.log.V(1).Info("service resolved", "name", rec.name, "duration", elapsed)
		}
		if c.observer != nil {
			c.observer.ObserveResolution(rec.name, elapsed, err)
		}
		return v, err
	})
	f.node = node
	return f
}

// invoke starts an invocation of target on its own goroutine.
func (c *Container) invoke(ctx context.Context, target any, receiver any, locals Locals) *Future {
	inj, err := normalize(target, nil, c.signatures)
	if err != nil {
		return Rejected(err)
	}
	fr := frameFrom(ctx)
	ctx = withFrame(ctx, frame{path: fr.path, locals: locals, node: fr.node})
	return Go(func() (any, error) {
		return c.call(ctx, inj, receiver, locals)
	})
}

// call resolves inj's dependencies, applies its body, injects members and
// runs the Initializer hook. It blocks until all of that is done.
func (c *Container) call(ctx context.Context, inj Injectable, receiver any, locals Locals) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, PanicError{Value: rec}
		}
	}()

	values, err := c.resolveAll(ctx, inj, inj.Deps, locals)
	if err != nil {
		return nil, err
	}

	args := Args{names: inj.Deps, values: values, receiver: receiver}
	var instance any
	switch inj.kind {
	case KindAsync:
		if f := inj.async(ctx, args); f != nil {
			instance, err = f.Await(ctx)
		}
	default:
		instance, err = inj.body(ctx, args)
	}
	if instance, err = flatten(ctx, instance, err); err != nil {
		return nil, err
	}

	if len(inj.Members) > 0 {
		deps := make([]string, len(inj.Members))
		for i, m := range inj.Members {
			deps[i] = m.Dep
		}
		members, err := c.resolveAll(ctx, inj, deps, locals)
		if err != nil {
			return nil, err
		}
		for i, m := range inj.Members {
			if err := setMember(instance, m.Field, members[i]); err != nil {
				return nil, err
			}
		}
	}

	if init, ok := instance.(Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// resolveAll starts every dependency before waiting on any of them.
func (c *Container) resolveAll(ctx context.Context, inj Injectable, names []string, locals Locals) ([]any, error) {
	futures := make([]*Future, len(names))
	for i, name := range names {
		futures[i] = c.resolveDep(ctx, inj, name, locals)
	}
	return awaitAll(ctx, futures)
}

// resolveDep picks the source of one dependency: the Injectable's own
// resolver, then locals, then the registry.
func (c *Container) resolveDep(ctx context.Context, inj Injectable, name string, locals Locals) *Future {
	if r, ok := inj.Resolvers[name]; ok && r != nil {
		return Go(func() (any, error) { return r(ctx) })
	}
	if v, ok := locals[name]; ok {
		return Resolved(v)
	}
	return c.get(ctx, name, locals)
}

// awaitAll joins futures; the first error wins and no partial result leaks.
func awaitAll(ctx context.Context, futures []*Future) ([]any, error) {
	values := make([]any, len(futures))
	if len(futures) == 0 {
		return values, nil
	}
	var g errgroup.Group
	for i, f := range futures {
		i, f := i, f
		g.Go(func() error {
			v, err := f.Await(ctx)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
