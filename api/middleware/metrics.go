package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zenazn/goji/web/mutil"
)

type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.requests, m.latency)
	return m
}

// Metrics records the requests served under route. The route is the mux
// template, not the request path.
func Metrics(m *HTTPMetrics, method string, route string) web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			m.requests.WithLabelValues(method, route, strconv.Itoa(lw.Status())).Inc()
			m.latency.WithLabelValues(method, route).Observe(float64(time.Since(start).Milliseconds()))
			return err
		}
		return h
	}
	return mw
}
