package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-injecting/framework/container"
	gohttp "github.com/km-arc/go-injecting/framework/http"
)

// ContainerInfo is the body of GET /container.
type ContainerInfo struct {
	ID       string              `json:"id"`
	Injector string              `json:"injector"`
	Bindings []container.Binding `json:"bindings"`
	Loading  []string            `json:"loading"`
}

// Inspect mounts endpoints describing c, all sent with no-cache headers:
//
//	GET    /healthz
//	GET    /container
//	GET    /container/bindings/{name}
//	DELETE /container/bindings/{name}/cache   (Forget: the next Get reruns the factory)
//	GET    /metrics            (when metrics is not nil)
func Inspect(r *Router, c *container.Container, metrics http.Handler) {
	r.Group(func(g *Router) {
		g.Middleware(middleware.NoCache)

		g.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			gohttp.NewResponse(w).JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		g.Prefix("/container", func(cr *Router) {
			cr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				gohttp.NewResponse(w).Success(ContainerInfo{
					ID:       c.ID(),
					Injector: c.InjectorName(),
					Bindings: c.Bindings(),
					Loading:  c.Loading(),
				})
			})
			cr.Get("/bindings/{name}", func(w http.ResponseWriter, req *http.Request) {
				name := Param(req, "name")
				for _, b := range c.Bindings() {
					if b.Name == name {
						gohttp.NewResponse(w).Success(b)
						return
					}
				}
				gohttp.NewResponse(w).ResolutionError(container.NotFoundError{Name: name})
			})
			cr.Delete("/bindings/{name}/cache", func(w http.ResponseWriter, req *http.Request) {
				res := gohttp.NewResponse(w)
				name := Param(req, "name")
				switch {
				case !c.Bound(name):
					res.ResolutionError(container.NotFoundError{Name: name})
				case !c.Forget(name):
					res.Error(http.StatusUnprocessableEntity, name+" is not a service")
				default:
					res.Success(map[string]string{"forgotten": name})
				}
			})
		})

		if metrics != nil {
			g.Mount("/metrics", metrics)
		}
	})
}
