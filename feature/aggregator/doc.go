// Package aggregator reassembles published price items into complete batches.
//
// Messages are grouped by batch id. A batch completes once it holds as many distinct
// messages as its advertised total and is then handed to the completion callback
// exactly once. Completed ids are remembered for a while so broker redeliveries do
// not start a new batch. Batches that never complete expire after a timeout.
package aggregator
