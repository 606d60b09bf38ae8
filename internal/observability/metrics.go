package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "crm_mailer"

// Metrics stores Prometheus collectors used by the API, delivery and scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	emailsQueuedTotal   *prometheus.CounterVec
	emailsSentTotal     prometheus.Counter
	emailsFailedTotal   *prometheus.CounterVec
	emailRetriesTotal   prometheus.Counter
	emailSendDuration   prometheus.Histogram
	emailsPruned        prometheus.Counter
	schedulerTicksTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		emailsQueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "emails_queued_total",
				Help:      "Total number of email jobs enqueued by template.",
			},
			[]string{"template"},
		),
		emailsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "emails_sent_total",
				Help:      "Total number of emails delivered successfully.",
			},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "emails_failed_total",
				Help:      "Total number of email jobs that ended in failed state.",
			},
			[]string{"reason"},
		),
		emailRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "email_retries_total",
				Help:      "Total number of failed attempts that left the job eligible for retry.",
			},
		),
		emailSendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "email_send_duration_seconds",
				Help:      "SMTP delivery attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		emailsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "emails_pruned_total",
				Help:      "Total number of terminal email jobs removed by cleanup.",
			},
		),
		schedulerTicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "scheduler_ticks_total",
				Help:      "Total number of background scheduler ticks by activity and result.",
			},
			[]string{"activity", "result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.emailsQueuedTotal,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.emailRetriesTotal,
		m.emailSendDuration,
		m.emailsPruned,
		m.schedulerTicksTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncEmailQueued(template string) {
	if m == nil {
		return
	}
	m.emailsQueuedTotal.WithLabelValues(normalizeLabel(template)).Inc()
}

func (m *Metrics) IncEmailSent() {
	if m == nil {
		return
	}
	m.emailsSentTotal.Inc()
}

func (m *Metrics) IncEmailFailed(reason string) {
	if m == nil {
		return
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncEmailRetry() {
	if m == nil {
		return
	}
	m.emailRetriesTotal.Inc()
}

func (m *Metrics) ObserveEmailSendDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.emailSendDuration.Observe(seconds)
}

func (m *Metrics) AddEmailsPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.emailsPruned.Add(float64(n))
}

func (m *Metrics) IncSchedulerTick(activity string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.schedulerTicksTotal.WithLabelValues(normalizeLabel(activity), result).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
