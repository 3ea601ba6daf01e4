package metrics

import (
	"net/http"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/ldap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ensure Metrics can be handed to the directory and auth services
var (
	_ ldap.Observer = (*Metrics)(nil)
	_ auth.Recorder = (*Metrics)(nil)
)

const namespace = "ldapauth"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Login Metrics
	LoginAttemptsTotal   *prometheus.CounterVec
	UsersRegisteredTotal prometheus.Counter
	UsersUpdatedTotal    prometheus.Counter

	// Directory Metrics
	DirectoryErrorsTotal  *prometheus.CounterVec
	DirectoryStageSeconds *prometheus.HistogramVec

	// HTTP Request Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every metric on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Total number of login attempts per strategy",
			},
			[]string{"strategy", "outcome"}, // outcome: success, rejected, error
		),
		UsersRegisteredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "users_registered_total",
				Help:      "Total number of local users created by a directory login",
			},
		),
		UsersUpdatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "users_updated_total",
				Help:      "Total number of local users updated from the directory",
			},
		),

		DirectoryErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_errors_total",
				Help:      "Total number of failed directory operations by kind",
			},
			[]string{"kind"},
		),
		DirectoryStageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "directory_stage_duration_seconds",
				Help:      "Time spent in each stage of a directory login",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"stage"}, // connect, resolve, verify, membership
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Directory

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.DirectoryStageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveError(kind ldap.Kind) {
	m.DirectoryErrorsTotal.WithLabelValues(kind.String()).Inc()
}

// Login

func (m *Metrics) LoginAttempt(strategy, outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) UserRegistered() {
	m.UsersRegisteredTotal.Inc()
}

func (m *Metrics) UserUpdated() {
	m.UsersUpdatedTotal.Inc()
}
