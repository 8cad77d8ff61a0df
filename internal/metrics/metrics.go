// Package metrics records API client outcomes with Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the API client reports to.
type Recorder interface {
	// ObserveRequest records one finished request. outcome is "live",
	// "fallback", or the failure classification.
	ObserveRequest(method, class, outcome string, elapsed time.Duration)
	// Notified counts a user-facing notification.
	Notified(variant string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRequest(string, string, string, time.Duration) {}
func (Nop) Notified(string)                                      {}

type Prometheus struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewPrometheus registers the client collectors on reg.
func NewPrometheus(reg prometheus.Registerer, profile string) *Prometheus {
	labels := prometheus.Labels{"profile": profile}
	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "pantry",
			Subsystem:   "apiclient",
			Name:        "requests_total",
			Help:        "API client requests by method, endpoint class and outcome.",
			ConstLabels: labels,
		}, []string{"method", "class", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "pantry",
			Subsystem:   "apiclient",
			Name:        "request_duration_seconds",
			Help:        "Wall time of API client requests, fallback short-circuits included.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "pantry",
			Subsystem:   "apiclient",
			Name:        "notifications_total",
			Help:        "User-facing notifications emitted by the API client.",
			ConstLabels: labels,
		}, []string{"variant"}),
	}
	reg.MustRegister(p.requests, p.latency, p.notifications)
	return p
}

func (p *Prometheus) ObserveRequest(method, class, outcome string, elapsed time.Duration) {
	if class == "" {
		class = "unmatched"
	}
	p.requests.WithLabelValues(method, class, outcome).Inc()
	p.latency.WithLabelValues(method, outcome).Observe(elapsed.Seconds())
}

func (p *Prometheus) Notified(variant string) {
	p.notifications.WithLabelValues(variant).Inc()
}

// Handler serves /metrics for gatherer and a plain /healthz.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
