package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/config"
	"github.com/karlseb/ttpharvest/internal/logging"
)

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		UserAgent:          "harvester-test",
		Concurrency:        2,
		RequestTimeout:     5 * time.Second,
		RateLimitPerDomain: 20,
	}
}

func TestCollyFetcherFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "harvester-test", r.UserAgent())
		w.Header().Set("X-Feed", "advisories")
		w.Write([]byte("<html><body><h1>Advisory</h1></body></html>")) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testCrawlerConfig(), logging.L)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL+"/advisory/aa25-001a")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, srv.URL+"/advisory/aa25-001a", page.URL)
	require.Contains(t, string(page.Body), "<h1>Advisory</h1>")
	require.Equal(t, "advisories", page.Headers.Get("X-Feed"))
	require.False(t, page.Rendered)
}

func TestCollyFetcherStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testCrawlerConfig(), logging.L)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestCollyFetcherAllowsRevisit(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte("<html>ok</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testCrawlerConfig(), logging.L)
	require.NoError(t, err)

	// Retries re-fetch the same URL through fresh clones that share the
	// collector's visit storage, so revisits must not be rejected.
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}
