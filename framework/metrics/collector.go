// Package metrics exports container resolution metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-injecting/framework/container"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeCycle    = "circular"
	OutcomePanic    = "panic"
)

// Collector records every service load reported by a container. It owns its
// registry so several containers (or tests) never collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ container.Observer = (*Collector)(nil)

// NewCollector creates a collector with Go and process metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "injector_resolutions_total",
				Help: "Total number of service loads by outcome",
			},
			[]string{"name", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "injector_resolution_duration_seconds",
				Help:    "Time spent building a service, dependencies included",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"name"},
		),
	}
	c.registry.MustRegister(
		c.resolutions,
		c.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveResolution implements container.Observer.
func (c *Collector) ObserveResolution(name string, elapsed time.Duration, err error) {
	c.resolutions.WithLabelValues(name, Outcome(err)).Inc()
	c.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Watch exports the binding and loading counts of ct as gauges.
func (c *Collector) Watch(ct *container.Container) error {
	labels := prometheus.Labels{"container": ct.ID()}
	bindings := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "injector_bindings",
		Help:        "Number of names registered in the container",
		ConstLabels: labels,
	}, func() float64 { return float64(len(ct.Bindings())) })
	loading := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "injector_loading_services",
		Help:        "Number of services whose factories are running",
		ConstLabels: labels,
	}, func() float64 { return float64(len(ct.Loading())) })

	if err := c.registry.Register(bindings); err != nil {
		return err
	}
	return c.registry.Register(loading)
}

// Registry exposes the underlying registry, e.g. for extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Outcome classifies a load error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, container.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, container.ErrCircularDependency):
		return OutcomeCycle
	case errors.Is(err, container.ErrFactoryPanic):
		return OutcomePanic
	default:
		return OutcomeError
	}
}
