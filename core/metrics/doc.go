// Package metrics exposes Prometheus instruments for the pipeline stages and
// serves them on the admin HTTP server.
package metrics
