package container

import (
	"context"
	"sync"
)

// Future is a single-assignment asynchronous value. Every Get and Invoke
// returns one; it settles exactly once with a value or an error.
//
//	v, err := c.Get(ctx, "mailer", nil).Await(ctx)
type Future struct {
	done chan struct{}
	once sync.Once
	val  any
	err  error

	// node identifies the service load producing the value, if any.
	node uint64
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future already settled with v.
func Resolved(v any) *Future {
	f := newFuture()
	f.settle(v, nil)
	return f
}

// Rejected returns a Future already settled with err.
func Rejected(err error) *Future {
	f := newFuture()
	f.settle(nil, err)
	return f
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic inside fn rejects the Future with a PanicError.
func Go(fn func() (any, error)) *Future {
	f := newFuture()
	go func() {
		var (
			v   any
			err error
		)
		defer func() {
			if rec := recover(); rec != nil {
				v, err = nil, PanicError{Value: rec}
			}
			f.settle(v, err)
		}()
		v, err = fn()
	}()
	return f
}

func (f *Future) settle(v any, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the Future has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the Future has a result yet.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the Future settles or ctx is done. Abandoning the wait
// does not stop the work behind the Future.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err waits for the Future and returns only its error.
func (f *Future) Err(ctx context.Context) error {
	_, err := f.Await(ctx)
	return err
}

// flatten awaits nested futures so a body returning a *Future yields the
// value that Future settles with.
func flatten(ctx context.Context, v any, err error) (any, error) {
	for err == nil {
		next, ok := v.(*Future)
		if !ok {
			break
		}
		if next == nil {
			return nil, nil
		}
		v, err = next.Await(ctx)
	}
	return v, err
}

// Await is a typed wrapper around (*Future).Await.
func Await[T any](ctx context.Context, f *Future) (T, error) {
	var zero T
	v, err := f.Await(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, ArgTypeError{Index: -1, Want: typeName[T](), Got: typeOf(v)}
	}
	return typed, nil
}
