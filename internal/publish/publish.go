// Package publish forwards harvested advisory records to downstream
// consumers. The abstraction keeps the crawl engine independent of the
// concrete transport (Google Cloud Pub/Sub, an in-memory buffer, or none).
package publish

import (
	"context"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

// Provider is the record publishing interface. Implementations must be safe
// for concurrent use by the crawl workers.
type Provider interface {
	// Publish forwards one advisory record.
	Publish(ctx context.Context, rec advisory.Record) error
	// Close flushes and releases any held resources.
	Close()
}

// NoOp discards records. It backs runs with no downstream consumer.
type NoOp struct{}

// Publish for NoOp does nothing and always returns nil.
func (NoOp) Publish(context.Context, advisory.Record) error {
	return nil
}

// Close for NoOp does nothing.
func (NoOp) Close() {}
