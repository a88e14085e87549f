package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes recorded on LoginsTotal.
const (
	LoginSucceeded = "succeeded"
	LoginFailed    = "failed"
	LoginInvalid   = "invalid_form"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersCreated        prometheus.Counter
	LoginsTotal         *prometheus.CounterVec
	VehiclesRegistered  prometheus.Counter
	ProfileGateRedirect prometheus.Counter
	SessionsRevoked     prometheus.Counter
	AccessDenied        *prometheus.CounterVec
	LoginLockouts       prometheus.Counter
	RequestLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgate_users_created_total",
			Help: "Total number of users created in the system",
		}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgate_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		VehiclesRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgate_vehicles_registered_total",
			Help: "Total number of vehicles registered by residents",
		}),
		ProfileGateRedirect: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgate_profile_gate_redirects_total",
			Help: "Resident dashboard visits redirected to profile completion",
		}),
		SessionsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgate_sessions_revoked_total",
			Help: "Sessions ended by logout",
		}),
		AccessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgate_access_denied_total",
			Help: "Requests redirected by a role gate, by required role",
		}, []string{"required_role"}),
		LoginLockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgate_login_lockouts_total",
			Help: "Email and IP pairs locked out after repeated login failures",
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

// IncrementLogins records one login attempt with the given outcome.
func (m *Metrics) IncrementLogins(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVehiclesRegistered() {
	m.VehiclesRegistered.Inc()
}

func (m *Metrics) IncrementProfileGateRedirects() {
	m.ProfileGateRedirect.Inc()
}

func (m *Metrics) IncrementSessionsRevoked() {
	m.SessionsRevoked.Inc()
}

func (m *Metrics) IncrementAccessDenied(requiredRole string) {
	m.AccessDenied.WithLabelValues(requiredRole).Inc()
}

func (m *Metrics) IncrementLoginLockouts() {
	m.LoginLockouts.Inc()
}

// ObserveRequestLatency records seconds spent serving route.
func (m *Metrics) ObserveRequestLatency(method, route string, seconds float64) {
	m.RequestLatency.WithLabelValues(method, route).Observe(seconds)
}
