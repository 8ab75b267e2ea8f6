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

const metricsNamespace = "campaign_dispatch"

// Batch outcome labels.
const (
	OutcomeApproved = "approved"
	OutcomeExpired  = "expired"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics stores Prometheus collectors used by the API and the approval pipeline.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	batchesTotal          *prometheus.CounterVec
	dispatchItemsTotal    *prometheus.CounterVec
	dispatchChunkDuration *prometheus.HistogramVec
	messagesPersisted     *prometheus.CounterVec
	payloadsSkippedTotal  *prometheus.CounterVec
	audienceSize          prometheus.Histogram
	tagCacheLookups       *prometheus.CounterVec
	throttledTotal        *prometheus.CounterVec
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
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "batches_total",
				Help:      "Batch approval attempts by outcome.",
			},
			[]string{"outcome"},
		),
		dispatchItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_items_total",
				Help:      "Payloads submitted to the job queue by result.",
			},
			[]string{"result"},
		),
		dispatchChunkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_chunk_duration_seconds",
				Help:      "Job-queue chunk call duration in seconds by result.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"result"},
		),
		messagesPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_persisted_total",
				Help:      "Message records written or lost during reconciliation.",
			},
			[]string{"result"},
		),
		payloadsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "payloads_skipped_total",
				Help:      "Recipients that produced no dispatch payload, by reason.",
			},
			[]string{"reason"},
		),
		audienceSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "audience_size",
				Help:      "Number of recipients per approved batch.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		tagCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tag_cache_lookups_total",
				Help:      "Tag catalog cache lookups by result.",
			},
			[]string{"result"},
		),
		throttledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limit_throttled_total",
				Help:      "Calls delayed by the rate limiter, by scope.",
			},
			[]string{"scope"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.batchesTotal,
		m.dispatchItemsTotal,
		m.dispatchChunkDuration,
		m.messagesPersisted,
		m.payloadsSkippedTotal,
		m.audienceSize,
		m.tagCacheLookups,
		m.throttledTotal,
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

func (m *Metrics) IncBatch(outcome string) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) AddDispatchItems(scheduled, failed int) {
	if m == nil {
		return
	}
	if scheduled > 0 {
		m.dispatchItemsTotal.WithLabelValues("scheduled").Add(float64(scheduled))
	}
	if failed > 0 {
		m.dispatchItemsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) ObserveDispatchChunk(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dispatchChunkDuration.WithLabelValues(resultLabel(ok)).Observe(seconds)
}

func (m *Metrics) AddMessagesPersisted(created, failed int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.messagesPersisted.WithLabelValues("created").Add(float64(created))
	}
	if failed > 0 {
		m.messagesPersisted.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) IncPayloadSkipped(reason string) {
	if m == nil {
		return
	}
	m.payloadsSkippedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveAudienceSize(n int) {
	if m == nil {
		return
	}
	m.audienceSize.Observe(float64(n))
}

// IncTagCacheLookup records a cache result: hit, miss or error.
func (m *Metrics) IncTagCacheLookup(result string) {
	if m == nil {
		return
	}
	m.tagCacheLookups.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncThrottled(scope string) {
	if m == nil {
		return
	}
	m.throttledTotal.WithLabelValues(normalizeLabel(scope)).Inc()
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

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
