package routing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-injecting/framework/container"
	"github.com/km-arc/go-injecting/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := routing.New(logr.Discard())
	r.Get("/hello", okHandler)
	r.Delete("/users/{id}", okHandler)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/hello"},
		{http.MethodDelete, "/users/1"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, do(t, r, tt.method, tt.path).Code)
		})
	}

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodPost, "/hello").Code)
}

func TestRouter_NotFound(t *testing.T) {
	r := routing.New(logr.Discard())
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/not-registered").Code)
}

func TestRouter_Param(t *testing.T) {
	r := routing.New(logr.Discard())
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(routing.Param(req, "id")))
	})

	rr := do(t, r, http.MethodGet, "/users/42")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r := routing.New(logr.Discard())
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", okHandler)
	})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/users").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users").Code)
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r := routing.New(logr.Discard())
	r.Group(func(g *routing.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})

	do(t, r, http.MethodGet, "/protected")
	assert.True(t, called, "expected middleware to be called")
}

func TestRouter_RecoversPanics(t *testing.T) {
	r := routing.New(logr.Discard())
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodGet, "/panic").Code)
}

func TestRequestLogger(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 1})

	r := routing.New(log)
	r.Get("/hello", okHandler)
	do(t, r, http.MethodGet, "/hello")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"path"="/hello"`)
	assert.Contains(t, lines[0], `"status"=200`)
}

func TestRouter_HandlerInterface(t *testing.T) {
	r := routing.New(logr.Discard())
	r.Get("/ping", okHandler)
	var _ http.Handler = r.Handler()
}

// ── Inspect ───────────────────────────────────────────────────────────────────

func newInspected(t *testing.T) (*routing.Router, *container.Container) {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Constant("name", "jack"))
	require.NoError(t, c.Service("greeting", []any{"name", func(n string) string { return "hi " + n }}))

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("injector_bindings 3\n"))
	})
	r := routing.New(logr.Discard())
	routing.Inspect(r, c, metrics)
	return r, c
}

func TestInspect_Healthz(t *testing.T) {
	r, _ := newInspected(t)
	rr := do(t, r, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestInspect_Container(t *testing.T) {
	r, c := newInspected(t)
	rr := do(t, r, http.MethodGet, "/container")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data routing.ContainerInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, c.ID(), body.Data.ID)
	assert.Equal(t, "$injector", body.Data.Injector)
	require.Len(t, body.Data.Bindings, 3)
	assert.Equal(t, "greeting", body.Data.Bindings[1].Name)
	assert.Equal(t, []string{"name"}, body.Data.Bindings[1].Deps)
	assert.Empty(t, body.Data.Loading)
}

func TestInspect_Binding(t *testing.T) {
	r, _ := newInspected(t)

	rr := do(t, r, http.MethodGet, "/container/bindings/name")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"name":"name","kind":"constant","overwritable":false,"cached":0}}`, rr.Body.String())

	rr = do(t, r, http.MethodGet, "/container/bindings/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"container: missing is not found"}`, rr.Body.String())
}

func TestInspect_NoCacheHeaders(t *testing.T) {
	r, _ := newInspected(t)
	for _, path := range []string{"/healthz", "/container", "/metrics"} {
		rr := do(t, r, http.MethodGet, path)
		assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store", path)
	}
}

func TestInspect_ForgetCache(t *testing.T) {
	r, c := newInspected(t)
	ctx := context.Background()
	_, err := container.Resolve[string](ctx, c, "greeting")
	require.NoError(t, err)

	rr := do(t, r, http.MethodGet, "/container/bindings/greeting")
	assert.Contains(t, rr.Body.String(), `"cached":1`)

	rr = do(t, r, http.MethodDelete, "/container/bindings/greeting/cache")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"forgotten":"greeting"}}`, rr.Body.String())

	rr = do(t, r, http.MethodGet, "/container/bindings/greeting")
	assert.Contains(t, rr.Body.String(), `"cached":0`)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, r, http.MethodDelete, "/container/bindings/name/cache").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/container/bindings/missing/cache").Code)
}

func TestInspect_Metrics(t *testing.T) {
	r, _ := newInspected(t)
	rr := do(t, r, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "injector_bindings")
}
