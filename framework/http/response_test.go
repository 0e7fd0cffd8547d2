package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-injecting/framework/container"
	gohttp "github.com/km-arc/go-injecting/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	return m
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestResponse_JSON(t *testing.T) {
	res, rr := newResponse(t)
	res.JSON(http.StatusOK, map[string]any{"key": "val"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "val", decodeJSON(t, rr)["key"])
}

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success(map[string]any{"id": 1})

	assert.Equal(t, http.StatusOK, rr.Code)
	data, ok := decodeJSON(t, rr)["data"].(map[string]any)
	require.True(t, ok, "expected data envelope")
	assert.Equal(t, float64(1), data["id"])
}

// ── Error helpers ─────────────────────────────────────────────────────────────

func TestResponse_Error(t *testing.T) {
	res, rr := newResponse(t)
	res.Error(http.StatusBadRequest, "bad input")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad input", decodeJSON(t, rr)["message"])
}

func TestResponse_NotFound(t *testing.T) {
	res, rr := newResponse(t)
	res.NotFound()

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found.", decodeJSON(t, rr)["message"])
}

func TestResponse_ServerError_CustomMessage(t *testing.T) {
	res, rr := newResponse(t)
	res.ServerError("db down")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "db down", decodeJSON(t, rr)["message"])
}

func TestResponse_ResolutionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", container.NotFoundError{Name: "mailer"}, http.StatusNotFound},
		{"cycle", container.CircularDependencyError{Name: "egg"}, http.StatusConflict},
		{"invalid", container.InvalidInjectableError{Reason: "nil body"}, http.StatusUnprocessableEntity},
		{"arg type", container.ArgTypeError{Index: -1, Want: "int", Got: "string"}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			res.ResolutionError(tt.err)

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, tt.err.Error(), decodeJSON(t, rr)["message"])
		})
	}
}

// ── Raw() ─────────────────────────────────────────────────────────────────────

func TestResponse_Raw(t *testing.T) {
	res, rr := newResponse(t)
	assert.Same(t, rr, res.Raw())
}
