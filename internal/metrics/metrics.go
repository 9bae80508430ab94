// Package metrics exposes Prometheus collectors for the web server and the
// recipe stores. Each Collector owns its registry so tests and multiple
// servers never share state.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

const defaultNamespace = "recipebox"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector holds the recipebox metrics.
type Collector struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	recipes       *prometheus.GaugeVec

	mutations *prometheus.CounterVec
}

// NewCollector creates a collector registered on a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = defaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	c.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	c.storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store loads and saves.",
		},
		[]string{"backend", "op", "collection", "result"},
	)

	c.storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store loads and saves.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"backend", "op"},
	)

	c.recipes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "recipes",
			Help:      "Number of recipes in each collection as of the last load or save.",
		},
		[]string{"collection"},
	)

	c.mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cookbook",
			Name:      "mutations_total",
			Help:      "Total number of cookbook mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	c.registry.MustRegister(
		c.httpInFlight,
		c.httpRequests,
		c.httpDuration,
		c.storeOps,
		c.storeDuration,
		c.recipes,
		c.mutations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordMutation counts one cookbook operation.
func (c *Collector) RecordMutation(op string, err error) {
	c.mutations.WithLabelValues(op, result(err)).Inc()
}

// Middleware records HTTP metrics for each request, labelled by route
// template so recipe IDs do not explode label cardinality.
func (c *Collector) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			c.httpInFlight.Inc()
			defer c.httpInFlight.Dec()

			rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}
			method := strings.ToUpper(r.Method)

			c.httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.Status)).Inc()
			c.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// StatusRecorder wraps http.ResponseWriter to capture the status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status  int
	written bool
}

func (rw *StatusRecorder) WriteHeader(code int) {
	if !rw.written {
		rw.Status = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// InstrumentStore wraps store so every Load and Save is counted and timed.
func (c *Collector) InstrumentStore(backend string, store types.Store) types.Store {
	return &instrumentedStore{Store: store, backend: backend, c: c}
}

type instrumentedStore struct {
	types.Store
	backend string
	c       *Collector
}

func (s *instrumentedStore) Load(ctx context.Context, collection string) ([]*types.Recipe, error) {
	start := time.Now()
	recipes, err := s.Store.Load(ctx, collection)
	s.observe("load", collection, start, err)
	if err == nil {
		s.c.recipes.WithLabelValues(collection).Set(float64(len(recipes)))
	}
	return recipes, err
}

func (s *instrumentedStore) Save(ctx context.Context, collection string, recipes []*types.Recipe) error {
	start := time.Now()
	err := s.Store.Save(ctx, collection, recipes)
	s.observe("save", collection, start, err)
	if err == nil {
		s.c.recipes.WithLabelValues(collection).Set(float64(len(recipes)))
	}
	return err
}

func (s *instrumentedStore) observe(op, collection string, start time.Time, err error) {
	s.c.storeOps.WithLabelValues(s.backend, op, collection, result(err)).Inc()
	s.c.storeDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
