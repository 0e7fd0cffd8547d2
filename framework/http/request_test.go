package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/km-arc/go-injecting/framework/container"
	gohttp "github.com/km-arc/go-injecting/framework/http"
)

func TestRequest_Query(t *testing.T) {
	req := gohttp.NewRequest(httptest.NewRequest(http.MethodGet, "/?name=jack", nil))

	assert.Equal(t, "jack", req.Query("name"))
	assert.Equal(t, "fallback", req.Query("missing", "fallback"))
	assert.Equal(t, "", req.Query("missing"))
	assert.NotNil(t, req.Raw())
}

func TestRequest_RouteParam(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/bindings/{name}", func(w http.ResponseWriter, raw *http.Request) {
		got = gohttp.NewRequest(raw).RouteParam("name")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bindings/mailer", nil))

	assert.Equal(t, "mailer", got)
}

func TestRequest_Locals(t *testing.T) {
	tests := []struct {
		url  string
		want container.Locals
	}{
		{"/greet", nil},
		{"/greet?other=1", nil},
		{"/greet?place=London", container.Locals{"place": "London"}},
		{"/greet?place=", container.Locals{"place": ""}},
		{"/greet?place=London&name=rose&x=1", container.Locals{"place": "London", "name": "rose"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.url, func(t *testing.T) {
			req := gohttp.NewRequest(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.want, req.Locals("place", "name"))
		})
	}
}
