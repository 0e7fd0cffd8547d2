package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-injecting/framework/app"
	"github.com/km-arc/go-injecting/framework/container"
	gohttp "github.com/km-arc/go-injecting/framework/http"
	"github.com/km-arc/go-injecting/framework/routing"
)

// Person is the demo service.
type Person struct {
	Name  string
	Place string
}

func (p *Person) Talk() string { return "I'm " + p.Name + ", I'm from " + p.Place }

// GreetingServiceProvider binds the demo names and adds a /greet route.
type GreetingServiceProvider struct {
	container.BaseProvider
}

// name, place and places keep any value bound from the constants manifest.
// places lists the values /greet accepts for ?place=.
func (p *GreetingServiceProvider) Register(c *container.Container) error {
	defaults := map[string]any{
		"name":   "jack",
		"place":  "China",
		"places": []string{"China", "London", "Paris"},
	}
	for name, value := range defaults {
		if c.Bound(name) {
			continue
		}
		if err := c.Constant(name, value); err != nil {
			return err
		}
	}
	return c.Service("person", container.Fn([]string{"name", "place"},
		func(_ context.Context, a container.Args) (any, error) {
			return &Person{Name: a.String(0), Place: a.String(1)}, nil
		}))
}

// Boot resolves the router, so it also runs the deferred routing provider.
func (p *GreetingServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	router, err := container.Resolve[*routing.Router](ctx, c, "router")
	if err != nil {
		return err
	}
	talk := container.Fn([]string{"person"}, func(_ context.Context, a container.Args) (any, error) {
		person, err := container.Arg[*Person](a, 0)
		if err != nil {
			return nil, err
		}
		return person.Talk(), nil
	})

	// GET /greet?place=London resolves person with place overridden for the
	// call. Each distinct place is memoized, so only listed places are taken.
	router.Get("/greet", func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w)
		locals := gohttp.NewRequest(req).Locals("place")
		if place, ok := locals["place"]; ok {
			places, err := c.Get(req.Context(), "places", nil).Await(req.Context())
			if err != nil {
				res.ResolutionError(err)
				return
			}
			if !listed(places, place) {
				res.Error(http.StatusUnprocessableEntity, fmt.Sprintf("unknown place %q", place))
				return
			}
		}
		msg, err := c.Invoke(req.Context(), talk, container.WithLocals(locals)).Await(req.Context())
		if err != nil {
			res.ResolutionError(err)
			return
		}
		res.Success(map[string]any{"message": msg})
	})
	return nil
}

// listed reports whether place is in places, a []string or a YAML list.
func listed(places, place any) bool {
	switch list := places.(type) {
	case []string:
		for _, p := range list {
			if p == place {
				return true
			}
		}
	case []any:
		for _, p := range list {
			if p == place {
				return true
			}
		}
	}
	return false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx) // loads .env automatically
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := application.Register(ctx, &GreetingServiceProvider{}); err != nil {
		fail(application.Logger(), err, "register")
	}
	if err := application.Boot(ctx); err != nil {
		fail(application.Logger(), err, "boot")
	}
	if err := application.Run(ctx); err != nil {
		fail(application.Logger(), err, "server error")
	}
}

func fail(log logr.Logger, err error, msg string) {
	log.Error(err, msg)
	os.Exit(1)
}
