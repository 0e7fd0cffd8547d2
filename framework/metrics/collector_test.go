package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-injecting/framework/container"
	"github.com/km-arc/go-injecting/framework/metrics"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeSuccess},
		{container.NotFoundError{Name: "x"}, metrics.OutcomeNotFound},
		{container.CircularDependencyError{Name: "x"}, metrics.OutcomeCycle},
		{container.PanicError{Value: "x"}, metrics.OutcomePanic},
		{errors.New("boom"), metrics.OutcomeError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.Outcome(tt.err))
		})
	}
}

func TestCollector_ObservesContainerLoads(t *testing.T) {
	ctx := context.Background()
	col := metrics.NewCollector()
	c := container.New(container.WithObserver(col))

	require.NoError(t, c.Service("ok", container.Fn(nil, func(context.Context, container.Args) (any, error) {
		return 1, nil
	})))
	require.NoError(t, c.Service("needy", container.Fn([]string{"missing"}, func(context.Context, container.Args) (any, error) {
		return nil, nil
	})))

	require.NoError(t, c.Get(ctx, "ok", nil).Err(ctx))
	require.NoError(t, c.Get(ctx, "ok", nil).Err(ctx))
	require.Error(t, c.Get(ctx, "needy", nil).Err(ctx))

	expected := `
# HELP injector_resolutions_total Total number of service loads by outcome
# TYPE injector_resolutions_total counter
injector_resolutions_total{name="needy",outcome="not_found"} 1
injector_resolutions_total{name="ok",outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(col.Registry(), strings.NewReader(expected), "injector_resolutions_total"))
	n, err := testutil.GatherAndCount(col.Registry(), "injector_resolution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollector_Watch(t *testing.T) {
	col := metrics.NewCollector()
	c := container.New()
	require.NoError(t, c.Constant("name", "jack"))
	require.NoError(t, col.Watch(c))

	// a second watch of the same container collides
	assert.Error(t, col.Watch(c))

	expected := `
# HELP injector_bindings Number of names registered in the container
# TYPE injector_bindings gauge
injector_bindings{container="` + c.ID() + `"} 2
`
	require.NoError(t, testutil.GatherAndCompare(col.Registry(), strings.NewReader(expected), "injector_bindings"))
}

func TestCollector_Handler(t *testing.T) {
	col := metrics.NewCollector()
	col.ObserveResolution("mailer", 3*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	col.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `injector_resolutions_total{name="mailer",outcome="success"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
