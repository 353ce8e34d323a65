package config

import (
	"reflect"
	"strings"

	"price-pipeline/core/broker"
	"price-pipeline/core/database"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/search"
	"price-pipeline/core/server"
	"price-pipeline/core/storage"
	"price-pipeline/feature/aggregator"
	"price-pipeline/feature/events"
	"price-pipeline/feature/integrity"
	"price-pipeline/feature/publisher"
	"price-pipeline/feature/sellers"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Broker holds the AMQP connection and topology.
	Broker broker.Config `mapstructure:"broker"`
	// Publisher tunes item publishing and its retry policy.
	Publisher publisher.Config `mapstructure:"publisher"`
	// Dedup configures the storage-event queue and its receivers.
	Dedup events.Config `mapstructure:"dedup"`
	// Aggregator configures batch aggregation and expiry.
	Aggregator aggregator.Config `mapstructure:"aggregator"`
	// Search configures the Elasticsearch index.
	Search search.Config `mapstructure:"search"`
	// Sellers configures the seller directory.
	Sellers sellers.Config `mapstructure:"sellers"`
	// Integrity configures the integrity checks.
	Integrity integrity.Config `mapstructure:"integrity"`
	// Metrics configures the Prometheus endpoint.
	Metrics metrics.Config `mapstructure:"metrics"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
