package events

import (
	"io"

	"price-pipeline/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HTTPHandler serves the webhook receiver and queue controls.
type HTTPHandler struct {
	receiver *Receiver
	queue    *Queue
	audit    AuditStore
	logger   *zap.Logger
}

// NewHTTPHandler creates the HTTP handler. audit may be nil.
func NewHTTPHandler(receiver *Receiver, queue *Queue, audit AuditStore, l *zap.Logger) *HTTPHandler {
	return &HTTPHandler{receiver: receiver, queue: queue, audit: audit, logger: logger.Component(l, "events_http")}
}

// RegisterRoutes registers the event routes.
func (h *HTTPHandler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/events")
	group.Post("/storage", h.HandleNotification)
	group.Get("/queue", h.HandleQueueStatus)
	group.Post("/queue/stop", h.HandleQueueStop)
	group.Post("/queue/start", h.HandleQueueStart)
	group.Get("/failed", h.HandleFailed)
}

// HandleNotification accepts an S3 event notification.
func (h *HTTPHandler) HandleNotification(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	if h.queue.Stopped() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "event intake is stopped"})
	}

	body := c.Body()
	if len(body) == 0 {
		if r := c.Context().RequestBodyStream(); r != nil {
			body, _ = io.ReadAll(r)
		}
	}

	events, err := DecodeNotification(body)
	if err != nil {
		l.Warn("Invalid storage notification", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	accepted := h.receiver.Accept(events, SourceWebhook)
	l.Info("Storage notification received", zap.Int("records", len(events)), zap.Int("accepted", accepted))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"received": len(events), "accepted": accepted})
}

// HandleQueueStatus reports the queue state.
func (h *HTTPHandler) HandleQueueStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"depth":      h.queue.Len(),
		"signatures": h.queue.Signatures(),
		"stopped":    h.queue.Stopped(),
	})
}

// HandleQueueStop stops event intake.
func (h *HTTPHandler) HandleQueueStop(c *fiber.Ctx) error {
	h.queue.Stop()
	logger.WithRayID(h.logger, c).Info("Event intake stopped")
	return c.JSON(fiber.Map{"stopped": true})
}

// HandleQueueStart resumes event intake.
func (h *HTTPHandler) HandleQueueStart(c *fiber.Ctx) error {
	h.queue.Start()
	logger.WithRayID(h.logger, c).Info("Event intake started")
	return c.JSON(fiber.Map{"stopped": false})
}

// HandleFailed lists recently failed events.
func (h *HTTPHandler) HandleFailed(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.JSON([]FailedEvent{})
	}
	rows, err := h.audit.Recent(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rows)
}
