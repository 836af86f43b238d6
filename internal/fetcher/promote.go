package fetcher

import (
	"context"

	"go.uber.org/zap"
)

// PromotingClient fetches through the fast path first and escalates to the
// headless renderer when the detector flags the body as script-dependent.
// A failed escalation falls back to the fast-path page rather than failing
// the fetch; a thin page is still worth parsing.
type PromotingClient struct {
	inner    Client
	renderer Renderer
	detector Detector
	logger   *zap.Logger
}

// NewPromotingClient builds the escalating wrapper. Both renderer and
// detector may be nil, which disables escalation entirely.
func NewPromotingClient(inner Client, renderer Renderer, detector Detector, logger *zap.Logger) *PromotingClient {
	return &PromotingClient{
		inner:    inner,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Fetch retrieves the page, rendering it when the heuristics ask for it.
func (c *PromotingClient) Fetch(ctx context.Context, rawURL string) (Page, error) {
	page, err := c.inner.Fetch(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}
	if c.renderer == nil || c.detector == nil {
		return page, nil
	}
	if !c.detector.NeedsRender(ctx, page) {
		return page, nil
	}
	rendered, renderErr := c.renderer.Render(ctx, rawURL)
	if renderErr != nil {
		c.logger.Warn("render escalation failed, keeping fast-path page",
			zap.String("url", rawURL),
			zap.Error(renderErr))
		return page, nil
	}
	return rendered, nil
}
