// Package fetcher retrieves advisory pages over HTTP. The default path goes
// through a Colly collector; pages that appear to require JavaScript can be
// escalated to a headless-Chrome renderer behind the same Client interface.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Page is the result of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Rendered   bool
}

// Client retrieves a single page.
type Client interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Renderer produces a DOM snapshot after JavaScript execution.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
	Close(ctx context.Context) error
}

// Detector decides whether a fetched page needs the renderer.
type Detector interface {
	NeedsRender(ctx context.Context, page Page) bool
}

// RetryPolicy decides whether and when a failed fetch is retried.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// StatusError reports a fetch that completed with a non-success HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.URL)
}
