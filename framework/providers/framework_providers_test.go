package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-injecting/framework/config"
	"github.com/km-arc/go-injecting/framework/container"
	"github.com/km-arc/go-injecting/framework/metrics"
	"github.com/km-arc/go-injecting/framework/providers"
	"github.com/km-arc/go-injecting/framework/routing"
)

func TestConfigServiceProvider_BindsConfigAndConstants(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Container: config.ContainerConfig{ConstantsFile: "testdata/constants.yaml"}}
	c := container.New()
	reg := container.NewProviderRegistry(c)

	require.NoError(t, reg.Register(ctx, &providers.ConfigServiceProvider{Config: cfg}))

	got, err := container.Resolve[*config.Config](ctx, c, "config")
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	v, err := c.GetAll(ctx, []string{"name", "place"}, nil).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"jack", "China"}, v)
}

func TestConfigServiceProvider_MissingManifest(t *testing.T) {
	cfg := &config.Config{Container: config.ContainerConfig{ConstantsFile: "testdata/nope.yaml"}}
	reg := container.NewProviderRegistry(container.New())

	err := reg.Register(context.Background(), &providers.ConfigServiceProvider{Config: cfg})
	assert.ErrorContains(t, err, "config: read testdata/nope.yaml")
}

func TestBindConstants_Conflict(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Constant("name", "jack"))

	err := providers.BindConstants(c, map[string]any{"name": "rose"})
	require.ErrorIs(t, err, container.ErrAlreadyRegistered)
	assert.Contains(t, err.Error(), "constant name")
}

func TestRoutingServiceProvider_Deferred(t *testing.T) {
	ctx := context.Background()
	c := container.New()
	reg := container.NewProviderRegistry(c)
	col := metrics.NewCollector()

	require.NoError(t, reg.Register(ctx, &providers.LoggingServiceProvider{Logger: logr.Discard()}))
	require.NoError(t, reg.Register(ctx, &providers.MetricsServiceProvider{Collector: col}))
	require.NoError(t, reg.Register(ctx, &providers.RoutingServiceProvider{}))
	require.NoError(t, reg.Boot(ctx))

	assert.Len(t, reg.Providers(), 2, "routing is deferred")

	router, err := container.Resolve[*routing.Router](ctx, c, "router")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "injector_bindings")
}

func TestRoutingServiceProvider_NeedsLogger(t *testing.T) {
	ctx := context.Background()
	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(ctx, &providers.RoutingServiceProvider{}))

	_, err := container.Resolve[*routing.Router](ctx, c, "router")
	assert.ErrorIs(t, err, container.ErrNotFound)
}
