// Package metrics exposes Prometheus metrics for the API.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/inclusiva/core"
)

type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	errorCounter    *prometheus.CounterVec
	loginCounter    *prometheus.CounterVec
	deniedCounter   *prometheus.CounterVec
	cacheCounter    *prometheus.CounterVec
	membersCreated  prometheus.Counter
}

// New registers every metric on a dedicated registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path"},
		),
		errorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors",
			},
			[]string{"method", "path", "status"},
		),
		loginCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Total number of login attempts",
			},
			[]string{"method", "result"},
		),
		deniedCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Total number of requests denied by a capability check",
			},
			[]string{"capability"},
		),
		cacheCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of cache lookups",
			},
			[]string{"result"},
		),
		membersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_created_total",
			Help:      "Total number of members created",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware tracks request count, duration and errors per route.
// Errors are handed to the echo error handler here so the recorded status is the final one.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			method, path := c.Request().Method, c.Path()
			m.requestCounter.WithLabelValues(method, path).Inc()

			if err := next(c); err != nil {
				c.Error(err)
			}

			code := strconv.Itoa(c.Response().Status)
			m.requestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
			if c.Response().Status >= 400 {
				m.errorCounter.WithLabelValues(method, path, code).Inc()
			}
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordLogin counts a login attempt; method is "pin", "master" or "member".
func (m *Metrics) RecordLogin(method string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.loginCounter.WithLabelValues(method, result).Inc()
}

func (m *Metrics) RecordMemberCreated() {
	m.membersCreated.Inc()
}

func (m *Metrics) RecordDenied(capability string) {
	m.deniedCounter.WithLabelValues(capability).Inc()
}

// InstrumentCache counts hits and misses of c.
func (m *Metrics) InstrumentCache(c core.Cache) core.Cache {
	return &instrumentedCache{Cache: c, counter: m.cacheCounter}
}

type instrumentedCache struct {
	core.Cache
	counter *prometheus.CounterVec
}

func (c *instrumentedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	found, err := c.Cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		c.counter.WithLabelValues("error").Inc()
	case found:
		c.counter.WithLabelValues("hit").Inc()
	default:
		c.counter.WithLabelValues("miss").Inc()
	}
	return found, err
}
