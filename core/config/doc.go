// Package config loads the pipeline configuration.
//
// Values come from the environment, optionally seeded from a .env file, with
// defaults taken from the `default` struct tags of each section. Keys map to
// variables by upper-casing and replacing dots with underscores, so
// publisher.retry.max_attempts is read from PUBLISHER_RETRY_MAX_ATTEMPTS.
//
// # Sections
//
//   - server, log, database, storage, metrics
//   - broker, publisher, dedup, aggregator, search, sellers, integrity
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
