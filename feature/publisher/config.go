package publisher

import "price-pipeline/core/retry"

// Config holds configuration for batch publishing.
type Config struct {
	// Workers bounds concurrent item publishes per batch.
	Workers int `mapstructure:"workers" default:"4"`
	// RateLimit caps publishes per second across the process. Zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" default:"0"`
	// Burst is the rate limiter bucket size.
	Burst int `mapstructure:"burst" default:"1"`
	// Retry is the per-item retry policy.
	Retry retry.Policy `mapstructure:"retry"`
}
