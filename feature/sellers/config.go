package sellers

import "time"

// Config holds configuration for the seller directory.
type Config struct {
	// CacheTTL bounds how long resolved sellers are served from memory.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"1m"`
	// ImportFile is read by "sellers import" when no path is given.
	ImportFile string `mapstructure:"import_file" default:"sellers.yaml"`
}
