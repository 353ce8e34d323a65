package metrics

// Config holds configuration for the Prometheus exposition.
type Config struct {
	// Enabled mounts the metrics endpoint on the admin server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the route serving the exposition format.
	Path string `mapstructure:"path" default:"/metrics"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" default:"price_pipeline"`
}
