package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qazmun/mun/core/assignment"
)

const namespace = "mun"

type Metrics struct {
	registry *prometheus.Registry

	assignmentRuns       *prometheus.CounterVec
	assignmentPlaced     prometheus.Counter
	assignmentUnassigned prometheus.Counter
	assignmentDuration   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ assignment.Metrics = (*Metrics)(nil)

// New registers the collectors on a registry of their own, with the go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		assignmentRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignment_runs_total",
				Help:      "Total number of assignment engine runs by outcome",
			},
			[]string{"outcome"},
		),
		assignmentPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_placements_total",
			Help:      "Total number of placements written by the assignment engine",
		}),
		assignmentUnassigned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_unassigned_total",
			Help:      "Total number of approved applications left without a committee after a run",
		}),
		assignmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_run_duration_seconds",
			Help:      "Duration of assignment engine runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) ObserveRun(success bool, placed, unassigned int, took time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.assignmentRuns.WithLabelValues(outcome).Inc()
	m.assignmentPlaced.Add(float64(placed))
	m.assignmentUnassigned.Add(float64(unassigned))
	m.assignmentDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
