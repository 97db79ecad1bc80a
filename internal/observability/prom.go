package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Upstream REST API
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	// Admin gate
	GateDecisions    *prometheus.CounterVec
	PasswordAttempts *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buildhub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "buildhub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buildhub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "buildhub",
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Upstream API latency (logical op, not raw URL)",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op", "status"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buildhub",
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Upstream API errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buildhub",
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Admin gate outcomes by state.",
			},
			[]string{"state"}, // authorized|password_required|denied
		),
		PasswordAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buildhub",
				Subsystem: "gate",
				Name:      "password_attempts_total",
				Help:      "Admin password submissions by result.",
			},
			[]string{"result"}, // ok|invalid
		),
	}

	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.UpstreamDuration, p.UpstreamErrors, p.GateDecisions, p.PasswordAttempts)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
