package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poku-e/shootingboard/internal/render"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	charts   prometheus.Counter
	reloads  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, surface *render.ChartSurface) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shootingboard_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shootingboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		charts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shootingboard_charts_rendered_total",
			Help: "Chart images served.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shootingboard_reloads_total",
			Help: "Times the results were replaced.",
		}),
	}
	live := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shootingboard_charts_live",
		Help: "Chart images held by the surface and not yet released.",
	}, func() float64 { return float64(surface.Live()) })
	reg.MustRegister(m.requests, m.duration, m.charts, m.reloads, live)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records a request summary in the log and the metrics. The
// route label is the matched mux pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())
		slog.Debug("request", "method", r.Method, "path", r.URL.Path, "route", route, "code", rec.code, "elapsed", elapsed)
	})
}
