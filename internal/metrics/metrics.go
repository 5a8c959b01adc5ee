// Package metrics exports Prometheus metrics fed by eventbus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	eventbus "github.com/hanpama/mutagraph/internal/eventbus"
	events "github.com/hanpama/mutagraph/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mutagraph"

// Collector holds the metric vectors.
type Collector struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	operationErrors  *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	validationErrors *prometheus.CounterVec
}

// New creates a collector with its own registry. Go and process collectors
// are included when runtime is true.
func New(runtime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "GraphQL operations by type.",
		}, []string{"type"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "errors_total",
			Help: "GraphQL errors by operation type.",
		}, []string{"type"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mutation", Name: "invocations_total",
			Help: "Mutation invocations by name and terminal state.",
		}, []string{"mutation", "state"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "mutation", Name: "duration_seconds",
			Help:    "Mutation latency from binding to the rewritten result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mutation"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mutation", Name: "validation_errors_total",
			Help: "Validation errors reported by mutations.",
		}, []string{"mutation"}),
	}
	c.registry.MustRegister(
		c.httpRequests, c.httpDuration,
		c.operations, c.operationErrors,
		c.mutations, c.mutationDuration, c.validationErrors,
	)
	if runtime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Subscribe attaches the collector to the global event bus.
func (c *Collector) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			c.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			c.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			c.operations.WithLabelValues(e.OperationType).Inc()
			if len(e.Errors) > 0 {
				c.operationErrors.WithLabelValues(e.OperationType).Add(float64(len(e.Errors)))
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.MutationFinish) {
			c.mutations.WithLabelValues(e.Mutation, e.State).Inc()
			c.mutationDuration.WithLabelValues(e.Mutation).Observe(e.Duration.Seconds())
			if e.ValidationErrors > 0 {
				c.validationErrors.WithLabelValues(e.Mutation).Add(float64(e.ValidationErrors))
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
