// Package metrics exposes Prometheus collectors for HTTP traffic and checkouts.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Checkouts *prometheus.CounterVec
	CheckoutLatency *prometheus.HistogramVec
}

// NewServerMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry().
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		CheckoutLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Checkout latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.CheckoutLatency)
	return m
}

// ObserveCheckout implements order.Recorder.
func (m *ServerMetrics) ObserveCheckout(outcome string, d time.Duration) {
	m.Checkouts.WithLabelValues(outcome).Inc()
	m.CheckoutLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// Middleware counts requests by chi route pattern so path parameters do not
// blow up label cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
