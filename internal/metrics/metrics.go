// Package metrics exposes Prometheus counters for HTTP traffic and logged
// care events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	eventsLogged    *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	familiesJoined  prometheus.Counter
	familiesCreated prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "babylog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "babylog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		eventsLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "babylog",
			Name:      "care_events_logged_total",
			Help:      "Care events logged by kind (feeding, changing, sleeping, note).",
		}, []string{"kind"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "babylog",
			Name:      "registrations_total",
			Help:      "Completed registrations, by whether a family code was used.",
		}, []string{"mode"}),
		familiesJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "babylog",
			Name:      "family_joins_total",
			Help:      "Users joining an existing family by code.",
		}),
		familiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "babylog",
			Name:      "families_created_total",
			Help:      "Families created.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.eventsLogged,
		m.registrations,
		m.familiesJoined,
		m.familiesCreated,
	)
	return m
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventLogged counts one care event of the given kind
func (m *Metrics) EventLogged(kind string) {
	if m == nil {
		return
	}
	m.eventsLogged.WithLabelValues(kind).Inc()
}

// Registered counts a registration; joined reports whether a family code was used
func (m *Metrics) Registered(joined bool) {
	if m == nil {
		return
	}
	mode := "new_family"
	if joined {
		mode = "family_code"
	}
	m.registrations.WithLabelValues(mode).Inc()
}

// FamilyJoined counts a successful join by code
func (m *Metrics) FamilyJoined() {
	if m == nil {
		return
	}
	m.familiesJoined.Inc()
}

// FamilyCreated counts a newly created family
func (m *Metrics) FamilyCreated() {
	if m == nil {
		return
	}
	m.familiesCreated.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. Requests are labelled with
// the ServeMux pattern that matched, so path parameters do not explode the
// label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
