package search

import "time"

// Config holds configuration for the search index.
type Config struct {
	// Enabled turns index application on. When off, deltas are computed and stored only.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Addresses lists the Elasticsearch nodes, comma separated in the environment.
	Addresses []string `mapstructure:"addresses" default:"http://localhost:9200"`
	// Username for basic authentication.
	Username string `mapstructure:"username" default:""`
	// Password for basic authentication.
	Password string `mapstructure:"password" default:""`
	// Index is the index holding price documents.
	Index string `mapstructure:"index" default:"prices"`
	// FlushTimeout bounds the wait for one bulk apply to finish.
	FlushTimeout time.Duration `mapstructure:"flush_timeout" default:"30s"`
	// Refresh is passed to the bulk API (true, false, wait_for).
	Refresh string `mapstructure:"refresh" default:"false"`
}
