// Package metrics exposes the storefront's Prometheus counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	cartActions   *prometheus.CounterVec
	payments      *prometheus.CounterVec
	subscriptions *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		}, []string{"method", "path"}),
		cartActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blossom_cart_actions_total",
			Help: "Cart actions applied, by action",
		}, []string{"action"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blossom_payment_verifications_total",
			Help: "Settled payment verifications, by provider and status",
		}, []string{"provider", "status"}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blossom_newsletter_subscriptions_total",
			Help: "Newsletter sign-up attempts, by result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.cartActions, m.payments, m.subscriptions,
	)
	return m
}

// Registry is exposed so callers can add their own collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) CartAction(action string) {
	m.cartActions.WithLabelValues(action).Inc()
}

func (m *Metrics) PaymentSettled(provider, status string) {
	m.payments.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) Subscription(result string) {
	m.subscriptions.WithLabelValues(result).Inc()
}

// Gauge registers a gauge read from f at scrape time.
func (m *Metrics) Gauge(name, help string, f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, f))
}

// Middleware counts requests and their latency by route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Path()
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			path = r.Path
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.httpRequests.WithLabelValues(c.Method(), path, http.StatusText(status)).Inc()
		m.httpDuration.WithLabelValues(c.Method(), path).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/metrics", m.Handler())
}
