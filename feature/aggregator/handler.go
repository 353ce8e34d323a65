package aggregator

import "github.com/gofiber/fiber/v2"

// Handler exposes live batches.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates a new HTTP handler.
func NewHandler(a *Aggregator) *Handler {
	return &Handler{aggregator: a}
}

// RegisterRoutes registers the aggregator routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Group("/aggregator").Get("/batches", h.HandleOpen)
}

// HandleOpen lists incomplete batches.
func (h *Handler) HandleOpen(c *fiber.Ctx) error {
	return c.JSON(h.aggregator.Open())
}

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
	enabled bool
}

// NewFeature creates the aggregator feature.
func NewFeature(a *Aggregator, enabled bool) *Feature {
	return &Feature{handler: NewHandler(a), enabled: enabled}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "aggregator"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled && f.handler.aggregator != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
