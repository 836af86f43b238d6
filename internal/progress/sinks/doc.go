// Package sinks implements concrete progress consumers: Prometheus run
// metrics, an in-memory status snapshot served by the ops API, and structured
// logging. Each sink satisfies the progress.Sink interface and is safe for
// repeated Consume/Close cycles.
package sinks
