package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the pipeline instruments. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	eventsReceived  *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	filesProcessed  *prometheus.CounterVec
	itemsPublished  *prometheus.CounterVec
	publishRetries  prometheus.Counter
	batchesFinished *prometheus.CounterVec
	deltaRows       *prometheus.CounterVec
	reconcileTime   prometheus.Histogram
	queueDepth      prometheus.Gauge
	openBatches     prometheus.Gauge
}

// New builds the instruments and registers them on a fresh registry.
func New(cfg Config) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "price_pipeline"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Storage events accepted into the dedup queue, by source.",
		}, []string{"source"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Storage events rejected by the dedup queue, by reason.",
		}, []string{"reason"}),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Price files processed, by outcome.",
		}, []string{"outcome"}),
		itemsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "publisher",
			Name:      "items_total",
			Help:      "Item messages published, by result.",
		}, []string{"result"}),
		publishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "publisher",
			Name:      "retries_total",
			Help:      "Publish attempts retried after a transient failure.",
		}),
		batchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "aggregator",
			Name:      "batches_total",
			Help:      "Batches handed off by the aggregator, by result.",
		}, []string{"result"}),
		deltaRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "reconcile",
			Name:      "delta_rows_total",
			Help:      "Rows in applied deltas, by action.",
		}, []string{"action"}),
		reconcileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of batch reconciliations.",
			Buckets:   prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "events",
			Name:      "queue_depth",
			Help:      "Events waiting in the dedup queue.",
		}),
		openBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "aggregator",
			Name:      "open_batches",
			Help:      "Batches currently being aggregated.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsReceived,
		m.eventsDropped,
		m.filesProcessed,
		m.itemsPublished,
		m.publishRetries,
		m.batchesFinished,
		m.deltaRows,
		m.reconcileTime,
		m.queueDepth,
		m.openBatches,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format on a fiber route.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) }
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) EventReceived(source string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(source).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) FileProcessed(outcome string) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ItemsPublished(succeeded, failed int) {
	if m == nil {
		return
	}
	m.itemsPublished.WithLabelValues("success").Add(float64(succeeded))
	m.itemsPublished.WithLabelValues("failure").Add(float64(failed))
}

func (m *Metrics) PublishRetried() {
	if m == nil {
		return
	}
	m.publishRetries.Inc()
}

func (m *Metrics) BatchFinished(result string) {
	if m == nil {
		return
	}
	m.batchesFinished.WithLabelValues(result).Inc()
}

// DeltaApplied records the size of an applied delta.
func (m *Metrics) DeltaApplied(added, updated, deleted int, took time.Duration) {
	if m == nil {
		return
	}
	m.deltaRows.WithLabelValues("add").Add(float64(added))
	m.deltaRows.WithLabelValues("update").Add(float64(updated))
	m.deltaRows.WithLabelValues("delete").Add(float64(deleted))
	m.reconcileTime.Observe(took.Seconds())
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SetOpenBatches(n int) {
	if m == nil {
		return
	}
	m.openBatches.Set(float64(n))
}
