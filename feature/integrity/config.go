package integrity

import "time"

// Config holds the integrity check settings.
type Config struct {
	// BacklogAge is how long a file may sit under the pending prefix before it is
	// reported as stale.
	BacklogAge time.Duration `mapstructure:"backlog_age" default:"15m"`
}
