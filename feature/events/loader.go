package events

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *HTTPHandler
	enabled bool
}

// NewFeature creates the events feature.
func NewFeature(handler *HTTPHandler, enabled bool) *Feature {
	return &Feature{handler: handler, enabled: enabled}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "events"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled && f.handler != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
