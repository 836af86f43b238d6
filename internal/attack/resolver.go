package attack

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/fetcher"
	"github.com/karlseb/ttpharvest/internal/htmldoc"
	"github.com/karlseb/ttpharvest/internal/metrics"
	"github.com/karlseb/ttpharvest/internal/taxonomy"
)

// ResolverConfig carries the catalog-page fallback settings.
type ResolverConfig struct {
	BaseURL         string
	MaxRedirectHops int
}

// Resolver maps technique identifiers to names and tactics. Lookups hit the
// preloaded taxonomy store first and fall back to scraping the technique's
// catalog page, following meta-refresh redirects. Results are cached for
// the lifetime of the resolver, negative results included.
type Resolver struct {
	store   *taxonomy.Store
	client  fetcher.Client
	base    *url.URL
	baseURL string
	maxHops int
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[string]TechniqueReference
}

// refreshPattern pulls the target out of a meta-refresh content attribute,
// e.g. "0; url=/techniques/T1566/002/".
var refreshPattern = regexp.MustCompile(`(?i)url=(.+)`)

// NewResolver builds a Resolver over the given store and HTTP client.
func NewResolver(store *taxonomy.Store, client fetcher.Client, cfg ResolverConfig, logger *zap.Logger) (*Resolver, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse resolver base url %q: %w", cfg.BaseURL, err)
	}
	return &Resolver{
		store:   store,
		client:  client,
		base:    base,
		baseURL: baseURL,
		maxHops: cfg.MaxRedirectHops,
		logger:  logger,
		cache:   make(map[string]TechniqueReference),
	}, nil
}

// Resolve returns the reference for id. A technique the taxonomy does not
// know yields the scraped display name with no tactics; a total miss yields
// an empty name so the identifier itself is never lost.
func (r *Resolver) Resolve(ctx context.Context, id string) TechniqueReference {
	start := time.Now()
	if ref, ok := r.cached(id); ok {
		metrics.ObserveResolution("cache", time.Since(start))
		return ref
	}
	ref, source := r.lookup(ctx, id)
	r.remember(ref)
	metrics.ObserveResolution(source, time.Since(start))
	return ref
}

func (r *Resolver) lookup(ctx context.Context, id string) (TechniqueReference, string) {
	if entry, ok := r.store.Lookup(id); ok {
		return TechniqueReference{ID: id, Name: entry.Name, Tactics: entry.Tactics}, "store"
	}
	name, ok := r.scrapeName(ctx, id)
	if !ok {
		r.logger.Warn("technique resolution failed", zap.String("technique", id))
		return TechniqueReference{ID: id, Name: "", Tactics: []string{}}, "miss"
	}
	r.logger.Warn("technique absent from taxonomy, using name from catalog page",
		zap.String("technique", id),
		zap.String("name", name))
	return TechniqueReference{ID: id, Name: name, Tactics: []string{}}, "fallback"
}

// candidateURLs returns the catalog pages to try for id. Sub-technique
// identifiers try the zero-padded sub-technique page first, then the parent.
func (r *Resolver) candidateURLs(id string) []string {
	if base, sub, found := strings.Cut(id, "."); found {
		for len(sub) < 3 {
			sub = "0" + sub
		}
		return []string{
			fmt.Sprintf("%s/techniques/%s/%s/", r.baseURL, base, sub),
			fmt.Sprintf("%s/techniques/%s/", r.baseURL, base),
		}
	}
	return []string{fmt.Sprintf("%s/techniques/%s/", r.baseURL, id)}
}

func (r *Resolver) scrapeName(ctx context.Context, id string) (string, bool) {
	for _, candidate := range r.candidateURLs(id) {
		current := candidate
		for hop := 0; hop < r.maxHops; hop++ {
			page, err := r.client.Fetch(ctx, current)
			if err != nil {
				r.logger.Debug("technique page fetch failed",
					zap.String("technique", id),
					zap.String("url", current),
					zap.Error(err))
				break
			}
			doc, err := htmldoc.Parse(page.Body)
			if err != nil {
				break
			}
			if name, ok := headingName(doc); ok {
				return name, true
			}
			next, ok := r.metaRefreshTarget(doc)
			if !ok {
				break
			}
			current = next
		}
	}
	return "", false
}

// headingName returns the page's first h1 text, colon-normalized, when it
// is non-empty.
func headingName(doc *htmldoc.Document) (string, bool) {
	sel := doc.Find("h1")
	if sel.Length() == 0 {
		return "", false
	}
	text := htmldoc.CompactText(sel.Get(0))
	if text == "" {
		return "", false
	}
	return normalizeColons(text), true
}

// metaRefreshTarget reads the first meta tag's content attribute and, when
// it carries a refresh target, resolves it against the resolver base URL.
func (r *Resolver) metaRefreshTarget(doc *htmldoc.Document) (string, bool) {
	sel := doc.Find("meta")
	if sel.Length() == 0 {
		return "", false
	}
	content, ok := sel.First().Attr("content")
	if !ok {
		return "", false
	}
	m := refreshPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	target := strings.Trim(strings.TrimSpace(m[1]), `'"`)
	ref, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	return r.base.ResolveReference(ref).String(), true
}

// normalizeColons inserts a space after any colon that lacks one, so
// sub-technique names read "Parent: Child" even when the page markup
// collapses the whitespace between the two.
func normalizeColons(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == ':' && i+1 < len(s) && s[i+1] != ' ' {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (r *Resolver) cached(id string) (TechniqueReference, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.cache[id]
	if !ok {
		return TechniqueReference{}, false
	}
	return copyRef(ref), true
}

func (r *Resolver) remember(ref TechniqueReference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cache[ref.ID]; exists {
		return
	}
	r.cache[ref.ID] = copyRef(ref)
}

func copyRef(ref TechniqueReference) TechniqueReference {
	tactics := make([]string, len(ref.Tactics))
	copy(tactics, ref.Tactics)
	return TechniqueReference{ID: ref.ID, Name: ref.Name, Tactics: tactics}
}
