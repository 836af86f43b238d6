// Package store persists harvested advisory records. The abstraction keeps
// the crawl engine independent of the concrete backend (Postgres or none).
package store

import (
	"context"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

// Provider is the persistence interface for advisory records. Implementations
// must be safe for concurrent use by the crawl workers.
type Provider interface {
	// SaveRecord writes one advisory record.
	SaveRecord(ctx context.Context, rec advisory.Record) error
	// Close releases any held resources.
	Close()
}

// NoOp discards records. It backs dry runs where records only go to the JSON
// output file.
type NoOp struct{}

// SaveRecord for NoOp does nothing and always returns nil.
func (NoOp) SaveRecord(context.Context, advisory.Record) error {
	return nil
}

// Close for NoOp does nothing.
func (NoOp) Close() {}
