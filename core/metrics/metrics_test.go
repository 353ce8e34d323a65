package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(Config{Namespace: "test"})

	m.EventReceived("webhook")
	m.EventReceived("webhook")
	m.FileProcessed("SUCCESS")
	m.ItemsPublished(3, 1)
	m.DeltaApplied(1, 2, 3, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsReceived.WithLabelValues("webhook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues("SUCCESS")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsPublished.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsPublished.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deltaRows.WithLabelValues("delete")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventReceived("amqp")
		m.EventDropped("duplicate")
		m.FileProcessed("FAILED")
		m.ItemsPublished(1, 1)
		m.PublishRetried()
		m.BatchFinished("expired")
		m.DeltaApplied(0, 0, 0, 0)
		m.SetQueueDepth(1)
		m.SetOpenBatches(1)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New(Config{})
	m.PublishRetried()

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "price_pipeline_publisher_retries_total 1")
}
