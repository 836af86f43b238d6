// Package archive saves raw advisory HTML to a blob store before parsing.
// The abstraction keeps the crawl engine independent of a specific backend
// (Google Cloud Storage, the local filesystem, or none).
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"
)

// Provider defines the common interface for an advisory archive.
type Provider interface {
	// Save uploads data to a specified object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOp is an archive provider that performs no operations. It is useful for
// dry runs where pages are fetched but raw bodies are not retained.
type NoOp struct{}

// Save for NoOp does nothing and always returns nil.
func (NoOp) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}

// Prefixed wraps a Provider so every object lands under a fixed key
// prefix, keeping harvest output separated from other tenants of a
// shared bucket or directory.
type Prefixed struct {
	inner  Provider
	prefix string
}

// NewPrefixed returns the prefixing wrapper. An empty prefix returns the
// inner provider unchanged.
func NewPrefixed(inner Provider, prefix string) Provider {
	if prefix == "" {
		return inner
	}
	return &Prefixed{inner: inner, prefix: prefix}
}

// Save stores data under prefix/objectName.
func (p *Prefixed) Save(ctx context.Context, objectName string, data []byte) error {
	return p.inner.Save(ctx, path.Join(p.prefix, objectName), data)
}

// ObjectName builds the archive key for one advisory body: run id, publish
// date partition, and a short content-independent hash of the URL. Re-running
// a harvest never overwrites an earlier run's objects.
func ObjectName(runID string, published time.Time, rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%s/%s/%s.html", runID, published.Format("2006/01/02"), hex.EncodeToString(sum[:])[:16])
}
