// Package search wraps the Elasticsearch client used to keep the price index in step
// with the reconciled snapshot.
package search
