package aggregator

import "time"

// Config holds configuration for batch aggregation.
type Config struct {
	// BatchTimeout is how long an incomplete batch is kept after its first message.
	BatchTimeout time.Duration `mapstructure:"batch_timeout" default:"30m"`
	// CompletionTTL is how long finished batch ids are remembered.
	CompletionTTL time.Duration `mapstructure:"completion_ttl" default:"1h"`
	// SweepInterval is the period of the expiry sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval" default:"1m"`
	// Workers is the number of concurrent delivery handlers.
	Workers int `mapstructure:"workers" default:"4"`
}
