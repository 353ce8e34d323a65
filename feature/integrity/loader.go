package integrity

import "github.com/gofiber/fiber/v2"

// Feature implements the loader.Feature interface for integrity checks.
type Feature struct {
	service *Service
}

// NewFeature creates the integrity feature.
func NewFeature(service *Service) *Feature {
	return &Feature{service: service}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "integrity"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
