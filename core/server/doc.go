// Package server holds the HTTP server configuration and the process role.
//
// A single binary can run the ingestion side (storage events, orchestration,
// publishing), the aggregation side (batch reassembly, reconciliation, indexing),
// or both. The Role setting selects which components the start command wires.
//
// # Configuration
//
// The Config struct defines the admin HTTP port, the API key guarding it and the role.
package server
