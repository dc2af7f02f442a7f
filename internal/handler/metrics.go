package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/cursedai/cursed-go/internal/middleware"
)

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// Metrics owns the API's Prometheus registry. A nil *Metrics records nothing,
// so it doubles as the service Observer in tests.
type Metrics struct {
	reg              *prometheus.Registry
	ratings          *prometheus.CounterVec
	graveyard        *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	exportDuration   prometheus.Histogram
}

// NewMetrics registers the API collectors plus Go runtime and process
// collectors. pool may be nil.
func NewMetrics(pool PoolStater) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		reg: reg,
		ratings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cursed_ratings_total",
			Help: "Rating submissions, by outcome.",
		}, []string{"outcome"}),
		graveyard: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cursed_graveyard_transitions_total",
			Help: "Items moved into the graveyard, by trigger.",
		}, []string{"trigger"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cursed_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "method", "status"}),
		requestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "cursed_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		exportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cursed_export_duration_seconds",
			Help:    "Duration of backup export archive builds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
	}

	if pool != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cursed_db_connection_pool_active",
			Help: "Number of active database connections.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) })
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cursed_db_connection_pool_idle",
			Help: "Number of idle database connections.",
		}, func() float64 { return float64(pool.Stat().IdleConns()) })
	}
	return m
}

func (m *Metrics) ObserveRating(outcome string) {
	if m != nil {
		m.ratings.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveGraveyard(trigger string) {
	if m != nil {
		m.graveyard.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) ObserveExport(d time.Duration) {
	if m != nil {
		m.exportDuration.Observe(d.Seconds())
	}
}

// Middleware records request duration and in-flight count.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Path and method alias the fasthttp buffer; copy before c.Next().
		endpoint := middleware.SanitizePath(string([]byte(c.Path())))
		method := string([]byte(c.Method()))

		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		m.requestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		h(c.RequestCtx())
		return nil
	}
}
