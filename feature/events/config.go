package events

import "time"

// Config holds configuration for the event dedup queue and its receivers.
type Config struct {
	// TTL is how long a signature suppresses identical notifications.
	TTL time.Duration `mapstructure:"ttl" default:"5m"`
	// PruneInterval is how often expired signatures are swept.
	PruneInterval time.Duration `mapstructure:"prune_interval" default:"1m"`
	// Webhook enables the HTTP notification receiver.
	Webhook bool `mapstructure:"webhook" default:"true"`
	// Amqp enables the storage-notification queue receiver.
	Amqp bool `mapstructure:"amqp" default:"true"`
}
