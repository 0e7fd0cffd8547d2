package container

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

var (
	// ErrEmptyName is returned when registering under "".
	ErrEmptyName = errors.New("container: name cannot be empty")

	// ErrAlreadyRegistered matches AlreadyRegisteredError.
	ErrAlreadyRegistered = errors.New("container: already registered")

	// ErrReservedName matches ReservedNameError.
	ErrReservedName = errors.New("container: reserved name")

	// ErrNotFound matches NotFoundError.
	ErrNotFound = errors.New("container: not found")

	// ErrCircularDependency matches CircularDependencyError.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrInvalidInjectable matches InvalidInjectableError.
	ErrInvalidInjectable = errors.New("container: invalid injectable")

	// ErrFactoryPanic matches PanicError.
	ErrFactoryPanic = errors.New("container: factory panicked")

	// ErrMember matches MemberError.
	ErrMember = errors.New("container: member injection failed")

	// ErrArgType matches ArgTypeError.
	ErrArgType = errors.New("container: argument has wrong type")
)

// ── Registration errors (returned synchronously) ─────────────────────────────

// AlreadyRegisteredError is returned when a name is taken by a record that
// was not registered as overwritable.
type AlreadyRegisteredError struct {
	Name string
}

func (e AlreadyRegisteredError) Error() string {
	return "container: " + e.Name + " is already registered"
}

func (e AlreadyRegisteredError) Is(target error) bool { return target == ErrAlreadyRegistered }

// ReservedNameError is returned when code outside the container's own
// bootstrap tries to register the self-name.
type ReservedNameError struct {
	Name string
}

func (e ReservedNameError) Error() string {
	return "container: " + e.Name + " is already registered. " + e.Name + " is reserved, try use other name"
}

func (e ReservedNameError) Is(target error) bool {
	return target == ErrReservedName || target == ErrAlreadyRegistered
}

// InvalidInjectableError describes a callable the container cannot use.
type InvalidInjectableError struct {
	Reason string
}

func (e InvalidInjectableError) Error() string {
	return "container: invalid injectable: " + e.Reason
}

func (e InvalidInjectableError) Is(target error) bool { return target == ErrInvalidInjectable }

// ── Resolution errors (surfaced through a Future) ────────────────────────────

// NotFoundError is returned when a dependency name has no record.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return "container: " + e.Name + " is not found"
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CircularDependencyError names the service that was re-entered while it was
// still loading, either on the same resolution path or by a load it waits on.
type CircularDependencyError struct {
	Name string
	// Path is the chain of services that led back to Name, ending with Name.
	Path []string
}

func (e CircularDependencyError) Error() string {
	msg := "container: circular dependencies found for " + e.Name
	if len(e.Path) > 1 {
		msg += " (" + strings.Join(e.Path, " -> ") + ")"
	}
	return msg
}

func (e CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// PanicError carries a value recovered from a panicking factory.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("container: factory panicked: %v", e.Value)
}

func (e PanicError) Is(target error) bool { return target == ErrFactoryPanic }

// Unwrap exposes the panic value when it was itself an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// MemberError is returned when a resolved member cannot be assigned onto the
// produced instance.
type MemberError struct {
	Field  string
	Reason string
}

func (e MemberError) Error() string {
	return "container: cannot inject member " + strconv.Quote(e.Field) + ": " + e.Reason
}

func (e MemberError) Is(target error) bool { return target == ErrMember }

// ArgTypeError is returned when an argument does not have the requested type.
type ArgTypeError struct {
	// Index is -1 when the value was not a positional argument.
	Index int
	Name  string
	Want  string
	Got   string
}

func (e ArgTypeError) Error() string {
	if e.Index < 0 {
		return "container: value is " + e.Got + ", want " + e.Want
	}
	// Example: container: argument 1 ("db") is string, want *sql.DB
	return "container: argument " + strconv.Itoa(e.Index) + " (" + strconv.Quote(e.Name) + ") is " + e.Got + ", want " + e.Want
}

func (e ArgTypeError) Is(target error) bool { return target == ErrArgType }
