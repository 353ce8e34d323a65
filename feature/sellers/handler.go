package sellers

import (
	"errors"

	"price-pipeline/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the seller directory.
type Handler struct {
	directory *Directory
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(directory *Directory, l *zap.Logger) *Handler {
	return &Handler{directory: directory, logger: logger.Component(l, "sellers")}
}

// RegisterRoutes registers the seller routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sellers")
	group.Get("/", h.HandleList)
	group.Get("/:folder", h.HandleResolve)
	group.Post("/:folder/activate", h.toggle(true))
	group.Post("/:folder/deactivate", h.toggle(false))
}

// HandleList returns all sellers.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	rows, err := h.directory.List(c.Context())
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Seller listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rows)
}

// HandleResolve returns the active seller owning a folder.
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	s, err := h.directory.Resolve(c.Context(), c.Params("folder"))
	switch {
	case err == nil:
		return c.JSON(s)
	case errors.Is(err, ErrUnknownSeller):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInactiveSeller):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "seller": s})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (h *Handler) toggle(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		folder := c.Params("folder")
		if err := h.directory.SetActive(c.Context(), folder, active); err != nil {
			if errors.Is(err, ErrUnknownSeller) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		logger.WithRayID(h.logger, c).Info("Seller updated", zap.String("folder", folder), zap.Bool("active", active))
		return c.JSON(fiber.Map{"folder": NormalizeFolder(folder), "active": active})
	}
}
