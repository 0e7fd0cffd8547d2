package container

import "context"

// ContextualBuilder is the fluent API for contextual resolvers: when a given
// service needs a dependency, give it something other than the registry's
// binding.
//
//	err := c.When("photoController").Needs("filesystem").Give(func(ctx context.Context) (any, error) {
//	    return s3.New(), nil
//	})
type ContextualBuilder struct {
	container *Container
	service   string
	needs     string
}

// When starts a contextual binding chain for a registered service.
func (c *Container) When(service string) *ContextualBuilder {
	return &ContextualBuilder{container: c, service: service}
}

// Needs names the dependency being overridden.
func (b *ContextualBuilder) Needs(dep string) *ContextualBuilder {
	b.needs = dep
	return b
}

// Give installs r as the resolver for the dependency. It affects loads that
// start afterwards; results already cached are kept.
func (b *ContextualBuilder) Give(r Resolver) error {
	if r == nil {
		return InvalidInjectableError{Reason: "nil resolver for " + b.needs}
	}
	if b.needs == "" {
		return ErrEmptyName
	}
	return b.container.registry.replace(b.service, func(cur *record) (*record, error) {
		if cur.kind != kindService {
			return nil, InvalidInjectableError{Reason: b.service + " is a " + cur.kind.String() + ", not a service"}
		}
		next := *cur
		next.injectable = cur.injectable.WithResolver(b.needs, r)
		return &next, nil
	})
}

// GiveValue is Give for a fixed value.
//
//	c.When("photoController").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) error {
	return b.Give(func(context.Context) (any, error) { return value, nil })
}
