package container

import (
	"context"
	"reflect"
)

// ── Injectable ────────────────────────────────────────────────────────────────

// Kind tells how an Injectable's body produces its value. It is decided when
// the Injectable is built and never re-inspected per call.
type Kind int

const (
	// KindFunc bodies return their value synchronously.
	KindFunc Kind = iota
	// KindAsync bodies return a *Future the resolver awaits (coroutine style).
	KindAsync
)

func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "func"
}

// Body is a synchronous factory body. Returning a *Future as the value is
// allowed; the resolver awaits it.
type Body func(ctx context.Context, args Args) (any, error)

// AsyncBody is a coroutine-style factory body.
type AsyncBody func(ctx context.Context, args Args) *Future

// Resolver supplies one dependency for a single Injectable, ahead of locals
// and the registry.
type Resolver func(ctx context.Context) (any, error)

// Member is a post-construction dependency: Dep is resolved after the body
// returns and assigned to Field on the produced instance.
type Member struct {
	Field string
	Dep   string
}

// Injectable is a callable together with the ordered names of its
// dependencies.
//
//	person := container.Fn([]string{"name", "place"}, func(ctx context.Context, a container.Args) (any, error) {
//	    return &Person{Name: a.String(0), Place: a.String(1)}, nil
//	})
type Injectable struct {
	// Deps is the dependency signature, in argument order.
	Deps []string
	// Members are injected onto the instance after the body returns.
	Members []Member
	// Resolvers override individual dependencies for this Injectable only.
	Resolvers map[string]Resolver

	kind  Kind
	body  Body
	async AsyncBody
}

// Fn builds a synchronous Injectable.
func Fn(deps []string, body Body) Injectable {
	return Injectable{Deps: deps, kind: KindFunc, body: body}
}

// Async builds a coroutine-style Injectable whose body returns a *Future.
func Async(deps []string, body AsyncBody) Injectable {
	return Injectable{Deps: deps, kind: KindAsync, async: body}
}

// Kind reports the body flavour.
func (i Injectable) Kind() Kind { return i.kind }

// WithMembers returns a copy of i that also injects the given members.
func (i Injectable) WithMembers(members ...Member) Injectable {
	i.Members = append(append([]Member(nil), i.Members...), members...)
	return i
}

// WithResolver returns a copy of i where dep is supplied by r.
func (i Injectable) WithResolver(dep string, r Resolver) Injectable {
	resolvers := make(map[string]Resolver, len(i.Resolvers)+1)
	for k, v := range i.Resolvers {
		resolvers[k] = v
	}
	resolvers[dep] = r
	i.Resolvers = resolvers
	return i
}

// withDeps returns a copy of i with its signature replaced.
func (i Injectable) withDeps(deps []string) Injectable {
	i.Deps = append([]string(nil), deps...)
	return i
}

func (i Injectable) validate() error {
	switch {
	case i.kind == KindFunc && i.body == nil:
		return InvalidInjectableError{Reason: "nil body"}
	case i.kind == KindAsync && i.async == nil:
		return InvalidInjectableError{Reason: "nil async body"}
	}
	for _, d := range i.Deps {
		if d == "" {
			return InvalidInjectableError{Reason: "empty dependency name"}
		}
	}
	for _, m := range i.Members {
		if m.Field == "" || m.Dep == "" {
			return InvalidInjectableError{Reason: "member needs both field and dependency"}
		}
	}
	return nil
}

// ── Args ──────────────────────────────────────────────────────────────────────

// Args are the resolved dependencies handed to a body, in signature order.
type Args struct {
	names    []string
	values   []any
	receiver any
}

// NewArgs pairs names with values; it is mostly useful to call bodies in tests.
func NewArgs(names []string, values []any) Args {
	return Args{names: names, values: values}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.values) }

// At returns the i-th argument, or nil when out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a.values) {
		return nil
	}
	return a.values[i]
}

// String returns the i-th argument as a string ("" if it is not one).
func (a Args) String(i int) string {
	s, _ := a.At(i).(string)
	return s
}

// Get returns the argument resolved for dependency name.
func (a Args) Get(name string) (any, bool) {
	for i, n := range a.names {
		if n == name && i < len(a.values) {
			return a.values[i], true
		}
	}
	return nil, false
}

// Names returns a copy of the dependency names.
func (a Args) Names() []string { return append([]string(nil), a.names...) }

// Values returns a copy of the resolved values.
func (a Args) Values() []any { return append([]any(nil), a.values...) }

// Receiver returns the value passed with WithReceiver, if any.
func (a Args) Receiver() any { return a.receiver }

// Arg returns the i-th argument typed as T.
func Arg[T any](a Args, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(a.values) {
		return zero, ArgTypeError{Index: i, Name: "", Want: typeName[T](), Got: "missing"}
	}
	v := a.values[i]
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		var name string
		if i < len(a.names) {
			name = a.names[i]
		}
		return zero, ArgTypeError{Index: i, Name: name, Want: typeName[T](), Got: typeOf(v)}
	}
	return typed, nil
}

// MustArg is Arg that panics; inside a factory the panic becomes a PanicError.
func MustArg[T any](a Args, i int) T {
	v, err := Arg[T](a, i)
	if err != nil {
		panic(err)
	}
	return v
}

// ── Post-construction capabilities ────────────────────────────────────────────

// MemberSetter lets an instance receive members without reflection.
type MemberSetter interface {
	SetMember(field string, value any) error
}

// Initializer is run after members are injected; the invocation settles
// only once Initialize returns.
type Initializer interface {
	Initialize(ctx context.Context) error
}

func setMember(instance any, field string, value any) error {
	if s, ok := instance.(MemberSetter); ok {
		if err := s.SetMember(field, value); err != nil {
			return MemberError{Field: field, Reason: err.Error()}
		}
		return nil
	}

	rv := reflect.ValueOf(instance)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return MemberError{Field: field, Reason: "instance " + typeOf(instance) + " is not a pointer to struct"}
	}
	fv := rv.Elem().FieldByName(field)
	if !fv.IsValid() {
		return MemberError{Field: field, Reason: "no such field on " + typeOf(instance)}
	}
	if !fv.CanSet() {
		return MemberError{Field: field, Reason: "field is not settable"}
	}
	val, err := valueFor(value, fv.Type())
	if err != nil {
		return MemberError{Field: field, Reason: err.Error()}
	}
	fv.Set(val)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// valueFor converts v into a reflect.Value assignable to t.
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, ArgTypeError{Index: -1, Want: t.String(), Got: "nil"}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	return reflect.Value{}, ArgTypeError{Index: -1, Want: t.String(), Got: rv.Type().String()}
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func typeOf(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
