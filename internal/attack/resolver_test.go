package attack

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/fetcher"
	"github.com/karlseb/ttpharvest/internal/logging"
	"github.com/karlseb/ttpharvest/internal/taxonomy"
)

type fakeClient struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func (c *fakeClient) Fetch(_ context.Context, rawURL string) (fetcher.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[rawURL]++
	body, ok := c.pages[rawURL]
	if !ok {
		return fetcher.Page{}, &fetcher.StatusError{Code: 404, URL: rawURL}
	}
	return fetcher.Page{URL: rawURL, FinalURL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
}

func (c *fakeClient) count(rawURL string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[rawURL]
}

func (c *fakeClient) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func newTestResolver(t *testing.T, store *taxonomy.Store, client fetcher.Client) *Resolver {
	t.Helper()
	r, err := NewResolver(store, client, ResolverConfig{
		BaseURL:         "https://attack.example",
		MaxRedirectHops: 5,
	}, logging.L)
	require.NoError(t, err)
	return r
}

func TestResolveFromStoreNeverFetches(t *testing.T) {
	t.Parallel()

	store := taxonomy.NewStore(map[string]taxonomy.Entry{
		"T1566": {Name: "Phishing", Tactics: []string{"initial-access"}},
	})
	client := &fakeClient{}
	r := newTestResolver(t, store, client)

	ref := r.Resolve(context.Background(), "T1566")
	require.Equal(t, TechniqueReference{ID: "T1566", Name: "Phishing", Tactics: []string{"initial-access"}}, ref)
	require.Zero(t, client.totalCalls())
}

func TestResolveFollowsMetaRefreshChain(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1566/002/": `<html><head>` +
			`<meta http-equiv="refresh" content="0; url=/redirected/once/"></head></html>`,
		"https://attack.example/redirected/once/": `<html><head>` +
			`<meta http-equiv="refresh" content="0; URL='/redirected/twice/'"></head></html>`,
		"https://attack.example/redirected/twice/": `<html><body>` +
			`<h1>Phishing:  <span>Spearphishing Attachment</span></h1></body></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T1566.002")
	require.Equal(t, "Phishing: Spearphishing Attachment", ref.Name)
	require.Equal(t, []string{}, ref.Tactics)
	require.Equal(t, 1, client.count("https://attack.example/redirected/twice/"))
}

func TestResolvePadsSubTechniqueURL(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1059/001/": `<html><h1>PowerShell</h1></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T1059.1")
	require.Equal(t, "PowerShell", ref.Name)
	require.Equal(t, 1, client.count("https://attack.example/techniques/T1059/001/"))
}

func TestResolveFallsBackToParentPage(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1566/": `<html><h1>Phishing</h1></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T1566.999")
	require.Equal(t, "Phishing", ref.Name)
	require.Equal(t, 1, client.count("https://attack.example/techniques/T1566/999/"))
	require.Equal(t, 1, client.count("https://attack.example/techniques/T1566/"))
}

func TestResolveStopsAtHopLimit(t *testing.T) {
	t.Parallel()

	// The page redirects to itself, so without the hop limit this would
	// never terminate.
	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1027/": `<html><head>` +
			`<meta http-equiv="refresh" content="0; url=/techniques/T1027/"></head></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T1027")
	require.Empty(t, ref.Name)
	require.Equal(t, []string{}, ref.Tactics)
	require.Equal(t, 5, client.count("https://attack.example/techniques/T1027/"))
}

func TestResolveCachesResults(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1490/": `<html><h1>Inhibit System Recovery</h1></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	first := r.Resolve(context.Background(), "T1490")
	second := r.Resolve(context.Background(), "T1490")
	require.Equal(t, first, second)
	require.Equal(t, 1, client.count("https://attack.example/techniques/T1490/"))
}

func TestResolveCachesMisses(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T4242")
	require.Equal(t, TechniqueReference{ID: "T4242", Name: "", Tactics: []string{}}, ref)

	r.Resolve(context.Background(), "T4242")
	require.Equal(t, 1, client.count("https://attack.example/techniques/T4242/"))
}

func TestResolveIgnoresMetaWithoutRefreshTarget(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://attack.example/techniques/T1110/": `<html><head>` +
			`<meta charset="utf-8"></head><body>no heading here</body></html>`,
	}}
	r := newTestResolver(t, taxonomy.NewStore(nil), client)

	ref := r.Resolve(context.Background(), "T1110")
	require.Empty(t, ref.Name)
	require.Equal(t, 1, client.count("https://attack.example/techniques/T1110/"))
}

func TestNormalizeColons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Phishing:Spearphishing Link", want: "Phishing: Spearphishing Link"},
		{in: "Phishing: Spearphishing Link", want: "Phishing: Spearphishing Link"},
		{in: "No Colons Here", want: "No Colons Here"},
		{in: "Trailing:", want: "Trailing:"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, normalizeColons(tt.in))
	}
}
