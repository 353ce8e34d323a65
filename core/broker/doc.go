// Package broker wraps the AMQP client used by the pipeline.
//
// It declares the topology (item topic exchange with its quorum queue and dead
// letter pair, plus the storage-notification direct exchange), publishes with
// publisher confirms, and runs reconnecting consumers that settle each delivery
// with an explicit Disposition.
package broker
