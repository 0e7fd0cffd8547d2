package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-injecting/framework/container"
)

// Request wraps *http.Request with input helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Locals turns the named query parameters into container locals. Absent
// parameters are left out so the registry still supplies them; a parameter
// sent empty (?place=) is kept and overrides with "".
//
//	// GET /greet?place=London
//	c.Invoke(ctx, talk, container.WithLocals(req.Locals("place")))
func (req *Request) Locals(keys ...string) container.Locals {
	q := req.raw.URL.Query()
	var locals container.Locals
	for _, k := range keys {
		vs, ok := q[k]
		if !ok {
			continue
		}
		if locals == nil {
			locals = container.Locals{}
		}
		var v string
		if len(vs) > 0 {
			v = vs[0]
		}
		locals[k] = v
	}
	return locals
}
