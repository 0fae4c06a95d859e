// Package metrics exposes domain counters and HTTP request metrics through
// a dedicated prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teams"

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type Metrics struct {
	registry *prometheus.Registry

	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	teamEvents          *prometheus.CounterVec
	invitationsSent     *prometheus.CounterVec
	invitationsAccepted prometheus.Counter
	signupConversions   prometheus.Counter
	notifyFailures      prometheus.Counter
	capacityDenials     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		teamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_events_total",
			Help:      "Team lifecycle events by kind",
		}, []string{"event"}),
		invitationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitations_sent_total",
			Help:      "Invitations created by channel",
		}, []string{"channel"}),
		invitationsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitations_accepted_total",
			Help:      "Invitations accepted",
		}),
		signupConversions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signup_conversions_total",
			Help:      "Email invitations converted to pending memberships on signup",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Invitation emails that could not be delivered",
		}),
		capacityDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_denials_total",
			Help:      "Operations denied by subscription limits",
		}, []string{"resource"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestLatency,
		m.teamEvents,
		m.invitationsSent,
		m.invitationsAccepted,
		m.signupConversions,
		m.notifyFailures,
		m.capacityDenials,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TeamEvent(event string) {
	m.teamEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) InvitationSent(channel string) {
	m.invitationsSent.WithLabelValues(channel).Inc()
}

func (m *Metrics) InvitationAccepted() {
	m.invitationsAccepted.Inc()
}

func (m *Metrics) InvitationsConverted(n int) {
	m.signupConversions.Add(float64(n))
}

func (m *Metrics) NotificationFailed() {
	m.notifyFailures.Inc()
}

func (m *Metrics) CapacityDenied(resource string) {
	m.capacityDenials.WithLabelValues(resource).Inc()
}

// Middleware records count and latency per route pattern, so ids in the
// path do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.requestTotal.With(labels).Inc()
		m.requestLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}
