package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsPipelineCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncBatch("Approved")
	metrics.IncBatch(OutcomeExpired)
	metrics.AddDispatchItems(3, 1)
	metrics.AddDispatchItems(0, 0)
	metrics.ObserveDispatchChunk(true, 120*time.Millisecond)
	metrics.AddMessagesPersisted(4, 0)
	metrics.IncPayloadSkipped("missing_media_url")
	metrics.ObserveAudienceSize(4)
	metrics.IncTagCacheLookup("hit")
	metrics.IncThrottled("jobqueue")

	if got := testutil.ToFloat64(metrics.batchesTotal.WithLabelValues(OutcomeApproved)); got != 1 {
		t.Fatalf("batches_total{approved} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.batchesTotal.WithLabelValues(OutcomeExpired)); got != 1 {
		t.Fatalf("batches_total{expired} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.dispatchItemsTotal.WithLabelValues("scheduled")); got != 3 {
		t.Fatalf("dispatch_items_total{scheduled} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.dispatchItemsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("dispatch_items_total{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.messagesPersisted.WithLabelValues("created")); got != 4 {
		t.Fatalf("messages_persisted_total{created} = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.payloadsSkippedTotal.WithLabelValues("missing_media_url")); got != 1 {
		t.Fatalf("payloads_skipped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.tagCacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("tag_cache_lookups_total{hit} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.throttledTotal.WithLabelValues("jobqueue")); got != 1 {
		t.Fatalf("rate_limit_throttled_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.audienceSize); got != 1 {
		t.Fatalf("audience_size series = %d, want 1", got)
	}
}

func TestMetricsNilIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncBatch(OutcomeApproved)
	metrics.AddDispatchItems(1, 1)
	metrics.ObserveDispatchChunk(false, time.Second)
	metrics.AddMessagesPersisted(1, 1)
	metrics.IncPayloadSkipped("x")
	metrics.ObserveAudienceSize(1)
	metrics.IncTagCacheLookup("miss")
	metrics.IncThrottled("jobqueue")

	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to the default handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
