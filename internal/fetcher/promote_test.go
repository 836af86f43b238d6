package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/logging"
)

type fakeRenderer struct {
	page  Page
	err   error
	calls int
}

func (r *fakeRenderer) Render(context.Context, string) (Page, error) {
	r.calls++
	return r.page, r.err
}

func (r *fakeRenderer) Close(context.Context) error { return nil }

type fixedDetector bool

func (d fixedDetector) NeedsRender(context.Context, Page) bool { return bool(d) }

func TestPromotingClientEscalates(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{page: Page{StatusCode: 200, Body: []byte("<div id=app></div>")}}
	renderer := &fakeRenderer{page: Page{StatusCode: 200, Body: []byte("<h1>Rendered</h1>"), Rendered: true}}
	c := NewPromotingClient(inner, renderer, fixedDetector(true), logging.L)

	page, err := c.Fetch(context.Background(), "https://advisories.example/a")
	require.NoError(t, err)
	require.True(t, page.Rendered)
	require.Equal(t, 1, renderer.calls)
}

func TestPromotingClientKeepsFastPath(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{page: Page{StatusCode: 200, Body: []byte("<h1>Static</h1>")}}
	renderer := &fakeRenderer{}
	c := NewPromotingClient(inner, renderer, fixedDetector(false), logging.L)

	page, err := c.Fetch(context.Background(), "https://advisories.example/b")
	require.NoError(t, err)
	require.False(t, page.Rendered)
	require.Zero(t, renderer.calls)
}

func TestPromotingClientFallsBackOnRenderFailure(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{page: Page{StatusCode: 200, Body: []byte("<div id=app></div>")}}
	renderer := &fakeRenderer{err: errors.New("browser crashed")}
	c := NewPromotingClient(inner, renderer, fixedDetector(true), logging.L)

	page, err := c.Fetch(context.Background(), "https://advisories.example/c")
	require.NoError(t, err)
	require.False(t, page.Rendered)
	require.Equal(t, []byte("<div id=app></div>"), page.Body)
}

func TestPromotingClientWithoutRenderer(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{page: Page{StatusCode: 200, Body: []byte("ok")}}
	c := NewPromotingClient(inner, nil, nil, logging.L)

	page, err := c.Fetch(context.Background(), "https://advisories.example/d")
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), page.Body)
}
