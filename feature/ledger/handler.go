package ledger

import (
	"errors"
	"time"

	"price-pipeline/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(repo *Repository, l *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger.Component(l, "ledger")}
}

// RegisterRoutes registers the ledger routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/ledger")
	group.Get("/stats", h.HandleStats)
	group.Get("/files", h.HandleFiles)
	group.Get("/batches/:batchId", h.HandleBatch)
	group.Get("/correlations/:id", h.HandleCorrelation)
	group.Get("/retry-candidates", h.HandleRetryCandidates)
}

// HandleStats returns per-status counts. Query: company, from, to (RFC3339).
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	stats, err := h.repo.Stats(c.Context(), f)
	if err != nil {
		return h.fail(c, "Ledger stats failed", err)
	}
	return c.JSON(stats)
}

// HandleFiles lists ledger rows. Query: company, from, to, limit.
func (h *Handler) HandleFiles(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	f.Limit = c.QueryInt("limit", 100)
	rows, err := h.repo.Find(c.Context(), f)
	if err != nil {
		return h.fail(c, "Ledger listing failed", err)
	}
	return c.JSON(rows)
}

// HandleBatch returns the row that published a batch.
func (h *Handler) HandleBatch(c *fiber.Ctx) error {
	rec, err := h.repo.FindByBatchID(c.Context(), c.Params("batchId"))
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return h.fail(c, "Ledger batch lookup failed", err)
	}
	return c.JSON(rec)
}

// HandleCorrelation returns every attempt for a correlation id.
func (h *Handler) HandleCorrelation(c *fiber.Ctx) error {
	rows, err := h.repo.FindByCorrelationID(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Ledger correlation lookup failed", err)
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrNotFound.Error()})
	}
	return c.JSON(rows)
}

// HandleRetryCandidates lists failed files. Query: olderThan (duration, default 1h).
func (h *Handler) HandleRetryCandidates(c *fiber.Ctx) error {
	age, err := time.ParseDuration(c.Query("olderThan", "1h"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid olderThan: " + err.Error()})
	}
	rows, err := h.repo.RetryCandidates(c.Context(), time.Now().Add(-age))
	if err != nil {
		return h.fail(c, "Retry candidate lookup failed", err)
	}
	return c.JSON(rows)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	logger.WithRayID(h.logger, c).Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	f := Filter{Company: c.Query("company")}
	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = time.Parse(time.RFC3339, v); err != nil {
			return f, errors.New("invalid from: " + err.Error())
		}
	}
	if v := c.Query("to"); v != "" {
		if f.To, err = time.Parse(time.RFC3339, v); err != nil {
			return f, errors.New("invalid to: " + err.Error())
		}
	}
	return f, nil
}
