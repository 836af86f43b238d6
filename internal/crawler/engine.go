package crawler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karlseb/ttpharvest/internal/advisory"
	"github.com/karlseb/ttpharvest/internal/archive"
	"github.com/karlseb/ttpharvest/internal/attack"
	"github.com/karlseb/ttpharvest/internal/fetcher"
	"github.com/karlseb/ttpharvest/internal/htmldoc"
	"github.com/karlseb/ttpharvest/internal/metrics"
	"github.com/karlseb/ttpharvest/internal/progress"
	"github.com/karlseb/ttpharvest/internal/publish"
	"github.com/karlseb/ttpharvest/internal/store"
)

// Params configures a harvest run.
type Params struct {
	// IndexURL is the advisory index; the engine appends the page query
	// parameter for pagination.
	IndexURL string
	// MaxPages bounds how many index pages are scanned.
	MaxPages int
	// Cutoff is the oldest publish date accepted. The index is assumed
	// reverse-chronological: the first older advisory halts the whole run.
	Cutoff time.Time
	// Concurrency is the number of items processed in parallel per page.
	Concurrency int
}

// Engine drives a harvest run.
type Engine struct {
	params    Params
	client    fetcher.Client
	resolver  *attack.Resolver
	store     store.Provider
	archive   archive.Provider
	publisher publish.Provider
	emitter   progress.Emitter
	logger    *zap.Logger

	runID  uuid.UUID
	seen   *seenSet
	halted atomic.Bool

	mu      sync.Mutex
	records []advisory.Record
	stats   RunStats
}

// NewEngine assembles an engine. Nil providers default to no-ops; nil logger
// defaults to a nop logger.
func NewEngine(
	params Params,
	client fetcher.Client,
	resolver *attack.Resolver,
	records store.Provider,
	blobs archive.Provider,
	pub publish.Provider,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Engine {
	if records == nil {
		records = store.NoOp{}
	}
	if blobs == nil {
		blobs = archive.NoOp{}
	}
	if pub == nil {
		pub = publish.NoOp{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.MaxPages <= 0 {
		params.MaxPages = 1
	}
	if params.Concurrency <= 0 {
		params.Concurrency = 1
	}
	return &Engine{
		params:    params,
		client:    client,
		resolver:  resolver,
		store:     records,
		archive:   blobs,
		publisher: pub,
		emitter:   emitter,
		logger:    logger,
		runID:     uuid.New(),
		seen:      newSeenSet(),
	}
}

// RunID identifies this engine's run in progress events and archive keys.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// Run walks the index until pages are exhausted, the cutoff halts iteration,
// or ctx is cancelled. It returns the records accumulated so far in page
// order then item order; the error is non-nil only for cancellation or an
// unusable index URL.
func (e *Engine) Run(ctx context.Context) ([]advisory.Record, RunStats, error) {
	runStart := time.Now()
	e.logger.Info("harvest run starting",
		zap.String("run_id", e.runID.String()),
		zap.String("index_url", e.params.IndexURL),
		zap.Int("max_pages", e.params.MaxPages),
		zap.Time("cutoff", e.params.Cutoff),
		zap.Int("concurrency", e.params.Concurrency),
	)
	e.emit(progress.Event{Stage: progress.StageRunStart, URL: e.params.IndexURL})

	for page := 0; page < e.params.MaxPages; page++ {
		if e.halted.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			e.emit(progress.Event{Stage: progress.StageRunError, Dur: time.Since(runStart), Note: err.Error()})
			return e.Records(), e.Stats(), err
		}

		pageURL, err := indexPageURL(e.params.IndexURL, page)
		if err != nil {
			err = fmt.Errorf("build index page url: %w", err)
			e.emit(progress.Event{Stage: progress.StageRunError, Dur: time.Since(runStart), Note: err.Error()})
			return e.Records(), e.Stats(), err
		}

		pageStart := time.Now()
		links, err := e.fetchIndexPage(ctx, pageURL)
		if err != nil {
			metrics.ObserveIndexPage("error")
			e.logger.Warn("index page fetch failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		metrics.ObserveIndexPage("ok")
		e.logger.Debug("index page scanned", zap.Int("page", page), zap.Int("items", len(links)))

		e.mu.Lock()
		e.stats.ItemsSeen += len(links)
		e.mu.Unlock()

		e.runPage(ctx, links)

		e.mu.Lock()
		e.stats.PagesScanned++
		e.mu.Unlock()
		e.emit(progress.Event{
			Stage: progress.StagePageDone,
			Page:  page,
			URL:   pageURL,
			Items: int64(len(links)),
			Dur:   time.Since(pageStart),
		})
	}

	records, stats := e.Records(), e.Stats()
	e.logger.Info("harvest run finished",
		zap.Int("records", stats.Records),
		zap.Int("technique_mentions", stats.TotalTechniques),
		zap.Bool("halted_by_cutoff", stats.HaltedByCutoff),
		zap.Duration("dur", time.Since(runStart)),
	)
	e.emit(progress.Event{Stage: progress.StageRunDone, Dur: time.Since(runStart)})
	return records, stats, nil
}

// Records returns a copy of the records accumulated so far. Safe to call
// while the run is in flight.
func (e *Engine) Records() []advisory.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]advisory.Record, len(e.records))
	copy(out, e.records)
	return out
}

// Stats returns a copy of the current run counters.
func (e *Engine) Stats() RunStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) fetchIndexPage(ctx context.Context, pageURL string) ([]string, error) {
	page, err := e.client.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := htmldoc.Parse(page.Body)
	if err != nil {
		return nil, err
	}
	base := page.FinalURL
	if base == "" {
		base = pageURL
	}
	return ExtractItemLinks(doc, base), nil
}

// itemResult carries one worker's output back to the page assembly step.
type itemResult struct {
	rec *advisory.Record
	dur time.Duration
}

// runPage processes one index page's items with a bounded pool. Results are
// reassembled in item order, and everything at or past the halt point is
// discarded so the output matches what a sequential crawl would have kept.
func (e *Engine) runPage(ctx context.Context, links []string) {
	results := make([]itemResult, len(links))
	halt := newHaltPoint()

	g := new(errgroup.Group)
	g.SetLimit(e.params.Concurrency)
	for i, link := range links {
		g.Go(func() error {
			if ctx.Err() != nil || i >= halt.at() {
				return nil
			}
			results[i] = e.processItem(ctx, link, halt, i)
			return nil
		})
	}
	_ = g.Wait()

	e.deliver(ctx, results, halt.at())
}

func (e *Engine) processItem(ctx context.Context, link string, halt *haltPoint, index int) itemResult {
	start := time.Now()
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	fetched, err := e.client.Fetch(ctx, link)
	if err != nil {
		e.logger.Warn("advisory fetch failed", zap.String("url", link), zap.Error(err))
		e.skip(progress.OutcomeFetchError, link, start)
		return itemResult{}
	}
	doc, err := htmldoc.Parse(fetched.Body)
	if err != nil {
		e.logger.Warn("advisory parse failed", zap.String("url", link), zap.Error(err))
		e.skip(progress.OutcomeFetchError, link, start)
		return itemResult{}
	}

	pg := advisory.ParsePage(link, doc)
	published, ok := advisory.ParseDate(pg.RawDate)
	if !ok {
		e.logger.Warn("advisory date missing or unparsable",
			zap.String("url", link), zap.String("raw_date", pg.RawDate))
		e.skip(progress.OutcomeNoDate, link, start)
		return itemResult{}
	}
	if published.Before(e.params.Cutoff) {
		e.logger.Info("advisory predates cutoff, halting crawl",
			zap.String("url", link),
			zap.Time("published", published),
			zap.Time("cutoff", e.params.Cutoff),
		)
		halt.mark(index)
		e.halted.Store(true)
		e.mu.Lock()
		e.stats.HaltedByCutoff = true
		e.mu.Unlock()
		e.skip(progress.OutcomeTooOld, link, start)
		return itemResult{}
	}

	// Cheap gate on the raw body before committing to full extraction.
	if !attack.ContainsID(string(fetched.Body)) {
		e.logger.Info("advisory mentions no techniques", zap.String("url", link))
		e.skip(progress.OutcomeNoTechniques, link, start)
		return itemResult{}
	}

	if !e.seen.markIfNew(advisory.Key(pg.Title, published)) {
		e.logger.Info("duplicate advisory skipped",
			zap.String("title", pg.Title), zap.String("url", link))
		e.skip(progress.OutcomeDuplicate, link, start)
		return itemResult{}
	}

	if err := e.archive.Save(ctx, archive.ObjectName(e.runID.String(), published, link), fetched.Body); err != nil {
		e.logger.Warn("advisory archive failed", zap.String("url", link), zap.Error(err))
	}

	summary := advisory.ExtractSection(doc, advisory.SummaryKeywords, e.logger)
	mitigations := advisory.ExtractSection(doc, advisory.MitigationKeywords, e.logger)

	ids := attack.ExtractIDs(htmldoc.Text(doc.Root))
	refs := make([]attack.TechniqueReference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, e.resolver.Resolve(ctx, id))
	}

	rec := advisory.Assemble(pg.Title, link, published, summary, mitigations, refs)
	return itemResult{rec: &rec, dur: time.Since(start)}
}

// deliver appends the page's surviving records in item order and forwards
// each to the store and publisher. Downstream failures are logged and do not
// drop the record from the output.
func (e *Engine) deliver(ctx context.Context, results []itemResult, upTo int) {
	for i, res := range results {
		if i >= upTo {
			break
		}
		if res.rec == nil {
			continue
		}
		rec := *res.rec

		e.mu.Lock()
		e.records = append(e.records, rec)
		e.stats.Records++
		e.stats.TotalTechniques += len(rec.Techniques)
		e.mu.Unlock()

		metrics.ObserveAdvisory(string(progress.OutcomeRecord))
		e.emit(progress.Event{
			Stage:      progress.StageItemDone,
			URL:        rec.URL,
			Outcome:    progress.OutcomeRecord,
			Techniques: int64(len(rec.Techniques)),
			Dur:        res.dur,
		})

		if err := e.store.SaveRecord(ctx, rec); err != nil {
			e.logger.Warn("record store failed", zap.String("url", rec.URL), zap.Error(err))
		}
		if err := e.publisher.Publish(ctx, rec); err != nil {
			e.logger.Warn("record publish failed", zap.String("url", rec.URL), zap.Error(err))
		}
	}
}

func (e *Engine) skip(outcome progress.Outcome, link string, start time.Time) {
	e.mu.Lock()
	switch outcome {
	case progress.OutcomeFetchError:
		e.stats.FetchFailures++
	case progress.OutcomeNoDate:
		e.stats.SkippedNoDate++
	case progress.OutcomeNoTechniques:
		e.stats.SkippedNoTechniques++
	case progress.OutcomeDuplicate:
		e.stats.SkippedDuplicate++
	}
	e.mu.Unlock()

	metrics.ObserveAdvisory(string(outcome))
	e.emit(progress.Event{Stage: progress.StageItemDone, URL: link, Outcome: outcome, Dur: time.Since(start)})
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	evt.RunID = progress.UUIDToBytes(e.runID)
	evt.TS = time.Now().UTC()
	e.emitter.Emit(evt)
}

// haltPoint tracks the lowest item index that observed an out-of-range date
// on the current page. Everything at or past it is discarded.
type haltPoint struct {
	mu  sync.Mutex
	idx int
}

func newHaltPoint() *haltPoint {
	return &haltPoint{idx: math.MaxInt}
}

func (h *haltPoint) mark(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < h.idx {
		h.idx = i
	}
}

func (h *haltPoint) at() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idx
}
