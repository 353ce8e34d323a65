package storage

// Config holds configuration for the storage provider.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket price files are dropped into.
	Bucket string `mapstructure:"bucket" default:"price-lists"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PendingPrefix is where new files arrive, as <pending>/<company>/<file>.
	PendingPrefix string `mapstructure:"pending_prefix" default:"pending"`
	// ProcessedPrefix receives files that were published successfully or partially.
	ProcessedPrefix string `mapstructure:"processed_prefix" default:"processed"`
	// UnprocessedPrefix receives files that failed validation or ownership checks.
	UnprocessedPrefix string `mapstructure:"unprocessed_prefix" default:"unprocessed"`
	// Listen enables the MinIO bucket-notification listener as an event source.
	Listen bool `mapstructure:"listen" default:"false"`
}
