package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// ── Signature providers ───────────────────────────────────────────────────────

// SignatureProvider reports the ordered dependency names of a plain Go func.
// Implementations must be deterministic; results may be cached per func type.
type SignatureProvider interface {
	SignatureOf(fn any) ([]string, error)
}

// DefaultSignatures reads names from `inject` struct tags.
var DefaultSignatures = NewTagSignatures("inject")

// TagSignatures derives a signature from a func whose dependencies arrive as
// a single struct parameter with tagged fields:
//
//	type mailerDeps struct {
//	    Config *config.Config `inject:"config"`
//	    Logger logr.Logger    `inject:"logger"`
//	}
//
//	func NewMailer(ctx context.Context, d mailerDeps) (*Mailer, error) { ... }
//
// Funcs without parameters (other than a leading context.Context) have an
// empty signature. Positional parameters carry no names in Go, so funcs that
// take them must be registered with explicit names (Injections or the
// array-style []any{"a", "b", fn} form).
type TagSignatures struct {
	tag   string
	cache sync.Map // reflect.Type -> []string
}

// NewTagSignatures returns a provider reading the given struct tag.
func NewTagSignatures(tag string) *TagSignatures {
	return &TagSignatures{tag: tag}
}

// FieldTag is the struct tag holding dependency names.
func (s *TagSignatures) FieldTag() string { return s.tag }

// SignatureOf implements SignatureProvider. The result is memoized per func type.
func (s *TagSignatures) SignatureOf(fn any) ([]string, error) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return nil, InvalidInjectableError{Reason: typeOf(fn) + " is not a func"}
	}
	if cached, ok := s.cache.Load(t); ok {
		return append([]string(nil), cached.([]string)...), nil
	}

	shape, err := inspectFunc(t, s.tag)
	if err != nil {
		return nil, err
	}

	var names []string
	switch {
	case shape.structIn != nil:
		names = make([]string, 0, len(shape.fields))
		for _, idx := range shape.fields {
			names = append(names, shape.structIn.Field(idx).Tag.Get(s.tag))
		}
	case len(shape.params) == 0:
		names = []string{}
	default:
		return nil, InvalidInjectableError{Reason: fmt.Sprintf(
			"%s takes %d positional parameters; declare their names explicitly", t, len(shape.params))}
	}

	s.cache.Store(t, names)
	return append([]string(nil), names...), nil
}

// fieldTagger is implemented by providers that read struct tags, so the
// reflect adapter can locate the tagged fields.
type fieldTagger interface {
	FieldTag() string
}

// ── Reflect adapter ───────────────────────────────────────────────────────────

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// funcShape is the calling convention of a plain Go func.
type funcShape struct {
	withCtx   bool
	structIn  reflect.Type // set when deps arrive as one tagged struct
	fields    []int        // tagged field indexes of structIn, in order
	params    []reflect.Type
	withValue bool
	withErr   bool
}

func inspectFunc(t reflect.Type, tag string) (funcShape, error) {
	var shape funcShape
	if t.IsVariadic() {
		return shape, InvalidInjectableError{Reason: t.String() + " is variadic"}
	}

	in := make([]reflect.Type, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in = append(in, t.In(i))
	}
	if len(in) > 0 && in[0] == contextType {
		shape.withCtx = true
		in = in[1:]
	}
	if len(in) == 1 && in[0].Kind() == reflect.Struct {
		st := in[0]
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if name := f.Tag.Get(tag); name != "" && name != "-" && f.IsExported() {
				shape.fields = append(shape.fields, i)
			}
		}
		if len(shape.fields) > 0 {
			shape.structIn = st
			in = nil
		}
	}
	shape.params = in

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			shape.withErr = true
		} else {
			shape.withValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return shape, InvalidInjectableError{Reason: t.String() + ": second result must be error"}
		}
		shape.withValue, shape.withErr = true, true
	default:
		return shape, InvalidInjectableError{Reason: t.String() + " returns more than two results"}
	}
	return shape, nil
}

func (s funcShape) arity() int {
	if s.structIn != nil {
		return len(s.fields)
	}
	return len(s.params)
}

func (s funcShape) results(out []reflect.Value) (any, error) {
	var (
		v   any
		err error
	)
	switch {
	case s.withValue && s.withErr:
		v = out[0].Interface()
		err, _ = out[1].Interface().(error)
	case s.withValue:
		v = out[0].Interface()
	case s.withErr:
		err, _ = out[0].Interface().(error)
	}
	return v, err
}

// reflectInjectable adapts a plain Go func. deps == nil asks sigs for names.
func reflectInjectable(fn any, deps []string, sigs SignatureProvider) (Injectable, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return Injectable{}, InvalidInjectableError{Reason: typeOf(fn) + " is not a func"}
	}
	tag := "inject"
	if ft, ok := sigs.(fieldTagger); ok {
		tag = ft.FieldTag()
	}
	shape, err := inspectFunc(fv.Type(), tag)
	if err != nil {
		return Injectable{}, err
	}
	if deps == nil {
		if deps, err = sigs.SignatureOf(fn); err != nil {
			return Injectable{}, err
		}
	}
	if len(deps) != shape.arity() {
		return Injectable{}, InvalidInjectableError{Reason: fmt.Sprintf(
			"%s needs %d dependencies, %d names declared", fv.Type(), shape.arity(), len(deps))}
	}

	names := append([]string(nil), deps...)
	body := func(ctx context.Context, args Args) (any, error) {
		in := make([]reflect.Value, 0, fv.Type().NumIn())
		if shape.withCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		if shape.structIn != nil {
			sv := reflect.New(shape.structIn).Elem()
			for k, idx := range shape.fields {
				val, err := valueFor(args.At(k), sv.Field(idx).Type())
				if err != nil {
					return nil, argError(k, names[k], err)
				}
				sv.Field(idx).Set(val)
			}
			in = append(in, sv)
		} else {
			for k, pt := range shape.params {
				val, err := valueFor(args.At(k), pt)
				if err != nil {
					return nil, argError(k, names[k], err)
				}
				in = append(in, val)
			}
		}
		return shape.results(fv.Call(in))
	}
	return Fn(names, body), nil
}

func argError(index int, name string, err error) error {
	if ate, ok := err.(ArgTypeError); ok {
		ate.Index, ate.Name = index, name
		return ate
	}
	return err
}

// ── Normalisation ─────────────────────────────────────────────────────────────

// Proxy packages a plain Go func with its inferred signature so it can be
// passed to Register, Service or Invoke like any other Injectable.
//
//	inj, err := container.Proxy(func(d struct {
//	    Name string `inject:"name"`
//	}) string {
//	    return "hello " + d.Name
//	})
func Proxy(fn any) (Injectable, error) {
	if inj, ok := fn.(Injectable); ok {
		return inj, nil
	}
	return reflectInjectable(fn, nil, DefaultSignatures)
}

// isCallable reports whether v can back a service.
func isCallable(v any) bool {
	switch c := v.(type) {
	case Injectable:
		return true
	case *Injectable:
		return c != nil
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func && !rv.IsNil()
}

// isArrayInjection reports whether v is an array-style declaration: names
// followed by one trailing callable.
func isArrayInjection(v any) bool {
	list, ok := v.([]any)
	if !ok || len(list) == 0 || !isCallable(list[len(list)-1]) {
		return false
	}
	for _, name := range list[:len(list)-1] {
		if _, ok := name.(string); !ok {
			return false
		}
	}
	return true
}

// normalize turns anything Invoke or Service accepts into an Injectable.
// Explicit deps (non-nil) replace the inferred signature.
func normalize(target any, deps []string, sigs SignatureProvider) (Injectable, error) {
	if isArrayInjection(target) {
		list := target.([]any)
		names := make([]string, 0, len(list)-1)
		for _, n := range list[:len(list)-1] {
			names = append(names, n.(string))
		}
		if deps == nil {
			deps = names
		}
		target = list[len(list)-1]
	}

	var inj Injectable
	switch t := target.(type) {
	case Injectable:
		inj = t
	case *Injectable:
		if t == nil {
			return Injectable{}, InvalidInjectableError{Reason: "nil *Injectable"}
		}
		inj = *t
	default:
		if !isCallable(target) {
			return Injectable{}, InvalidInjectableError{Reason: typeOf(target) + " is not callable"}
		}
		var err error
		if inj, err = reflectInjectable(target, deps, sigs); err != nil {
			return Injectable{}, err
		}
	}
	if deps != nil {
		inj = inj.withDeps(deps)
	}
	if err := inj.validate(); err != nil {
		return Injectable{}, err
	}
	return inj, nil
}
