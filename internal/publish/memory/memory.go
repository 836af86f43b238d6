// Package memory contains an in-memory record publisher for tests.
package memory

import (
	"context"
	"sync"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

// Publisher stores published records for inspection.
type Publisher struct {
	mu      sync.RWMutex
	records []advisory.Record
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the advisory.
func (p *Publisher) Publish(_ context.Context, rec advisory.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

// Records returns a copy of the recorded publishes.
func (p *Publisher) Records() []advisory.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]advisory.Record, len(p.records))
	copy(out, p.records)
	return out
}

// Close does nothing for the memory publisher.
func (p *Publisher) Close() {}
