// Package metrics defines the Prometheus metrics of the course API. Metrics
// are registered on the default registry at package init via promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tumme/course-system/internal/core/domain"
)

const namespace = "courses"

// ── Auth metrics ─────────────────────────────────────────────────────────────

// AuthStateTransitionsTotal counts auth state changes published by the
// session manager.
// Label:
//   - status: loading, logged_in, logged_out or error
var AuthStateTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_state_transitions_total",
		Help:      "Total number of auth state transitions, by resulting status.",
	},
	[]string{"status"},
)

// AuthLoggedIn is 1 while a user is logged in on this device.
var AuthLoggedIn = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "auth_logged_in",
		Help:      "Whether a session is currently logged in (1) or not (0).",
	},
)

// ObserveAuthState records one published auth state.
func ObserveAuthState(s domain.AuthState) {
	AuthStateTransitionsTotal.WithLabelValues(string(s.Status)).Inc()
	if s.Status == domain.AuthLoggedIn {
		AuthLoggedIn.Set(1)
	} else if s.Status == domain.AuthLoggedOut {
		AuthLoggedIn.Set(0)
	}
}

// ── Catalog metrics ──────────────────────────────────────────────────────────

var CoursesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "courses_created_total",
		Help:      "Total number of courses created, by study level.",
	},
	[]string{"level"},
)

var SubscriptionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriptions_created_total",
		Help:      "Total number of course subscriptions created.",
	},
)

var ScoresRecordedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scores_recorded_total",
		Help:      "Total number of subscription scores recorded.",
	},
)

// ── HTTP metrics ─────────────────────────────────────────────────────────────

var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status code.",
	},
	[]string{"method", "route", "code"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// Middleware records request counts and latencies keyed by the route
// pattern, so path parameters do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before we read it
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
