// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces the crawl engine uses to report harvest progress. Events
// are batched on a background goroutine and fanned out to pluggable sinks
// such as Prometheus run metrics, a live status snapshot, or structured logs.
package progress
