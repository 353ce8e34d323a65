package snapshot

import (
	"errors"

	"price-pipeline/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes reconciliation history and stored snapshots.
type Handler struct {
	reconciler *Reconciler
}

// NewHandler creates a new HTTP handler.
func NewHandler(r *Reconciler) *Handler {
	return &Handler{reconciler: r}
}

// RegisterRoutes registers the snapshot routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/history", h.HandleHistory)
	app.Get("/history/:batchId", h.HandleHistoryFor)
	app.Get("/snapshots/:company", h.HandleSnapshot)
}

// HandleHistory lists reconciliation runs. Query: company, limit.
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	rows, err := h.reconciler.History(c.Context(), c.Query("company"), c.QueryInt("limit", 50))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rows)
}

// HandleHistoryFor returns the run of one batch.
func (h *Handler) HandleHistoryFor(c *fiber.Ctx) error {
	row, err := h.reconciler.HistoryFor(c.Context(), c.Params("batchId"))
	if errors.Is(err, ErrHistoryNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(row)
}

// HandleSnapshot returns the stored snapshot of a company.
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	rows, err := h.reconciler.Current(c.Context(), c.Params("company"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rows)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	logger.WithRayID(h.reconciler.logger, c).Error("Snapshot query failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the snapshot feature.
func NewFeature(r *Reconciler) *Feature {
	return &Feature{handler: NewHandler(r)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "snapshot"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.handler.reconciler != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
