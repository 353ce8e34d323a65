// Package events turns object-store notifications into file-processing work.
//
// Producers (the HTTP webhook, the storage-notification queue and the optional
// bucket listener) decode notifications into StorageEvent values and add them to a
// Queue. The queue suppresses repeats of the same object version for a TTL window.
// Exactly one Consumer drains it and hands each event to the Dispatcher, which
// processes created objects and audits failures in the failed_events table.
package events
