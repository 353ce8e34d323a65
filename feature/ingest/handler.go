package ingest

import (
	"price-pipeline/core/logger"
	"price-pipeline/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler triggers file processing over HTTP.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler creates a new HTTP handler.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

// RegisterRoutes registers the ingest routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Group("/files").Post("/process", h.HandleProcess)
}

type processRequest struct {
	Key   string `json:"key"`
	Force bool   `json:"force"`
}

// HandleProcess processes one pending object synchronously.
func (h *Handler) HandleProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must be {\"key\": \"...\", \"force\": bool}"})
	}

	correlationID, _ := c.Locals(rayid.LocalsKey).(string)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	l := logger.WithRayID(h.orchestrator.logger, c)
	res, err := h.orchestrator.Process(c.Context(), FileRequest{Key: req.Key, CorrelationID: correlationID, Force: req.Force})
	if err != nil {
		l.Error("Manual processing failed", zap.String("key", req.Key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error(), "result": res})
	}
	return c.JSON(res)
}
