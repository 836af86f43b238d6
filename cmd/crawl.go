package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/api"
	"github.com/karlseb/ttpharvest/internal/attack"
	"github.com/karlseb/ttpharvest/internal/config"
	"github.com/karlseb/ttpharvest/internal/crawler"
	"github.com/karlseb/ttpharvest/internal/fetcher"
	"github.com/karlseb/ttpharvest/internal/progress"
	"github.com/karlseb/ttpharvest/internal/progress/sinks"
	"github.com/karlseb/ttpharvest/internal/report"
	"github.com/karlseb/ttpharvest/internal/taxonomy"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Walks the advisory index and writes technique records.",
		Long: `crawl pages through the advisory index from newest to oldest,
fetches each advisory, extracts ATT&CK technique identifiers, and writes
the resolved records as JSON. The crawl stops at the configured date
cutoff or page limit, whichever comes first.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Crawler.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Crawler.RunTimeout)
		defer cancel()
	}

	client, closeClient, err := buildFetchClient(cfg, logger)
	if err != nil {
		return err
	}
	defer closeClient(context.Background())

	cutoff, err := cfg.Crawler.Cutoff()
	if err != nil {
		return err
	}

	// The taxonomy is the ground truth for technique names and tactics.
	// Without it every resolution would fall through to the live site, so
	// a load failure aborts the run before any advisory is fetched.
	taxStore, err := taxonomy.NewLoader(client, logger).Load(ctx, cfg.Taxonomy.URLs())
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}

	resolver, err := attack.NewResolver(taxStore, client, attack.ResolverConfig{
		BaseURL:         cfg.Resolver.BaseURL,
		MaxRedirectHops: cfg.Resolver.MaxRedirectHops,
	}, logger)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	snapshot := sinks.NewSnapshotSink()
	hubSinks := []progress.Sink{sinks.NewLogSink(logger), snapshot}
	if promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("Prometheus progress sink unavailable", zap.Error(err))
	} else {
		hubSinks = append(hubSinks, promSink)
	}

	// The hub gets a background context so the final batch still flushes
	// after the run context is cancelled by a signal.
	hub := progress.NewHub(progress.Config{
		Logger:      logger,
		BaseContext: context.Background(),
	}, hubSinks...)

	engine := crawler.NewEngine(crawler.Params{
		IndexURL:    cfg.Crawler.IndexURL,
		MaxPages:    cfg.Crawler.MaxPages,
		Cutoff:      cutoff,
		Concurrency: cfg.Crawler.Concurrency,
	}, client, resolver, appInstance.GetStore(), appInstance.GetArchive(), appInstance.GetPublisher(), hub, logger)

	var (
		opsCancel context.CancelFunc
		opsErr    chan error
	)
	if cfg.Ops.Enabled {
		var opsCtx context.Context
		opsCtx, opsCancel = context.WithCancel(ctx)
		srv := api.NewServer(snapshot, engine, cfg.Ops, logger)
		opsErr = make(chan error, 1)
		go func() {
			opsErr <- srv.Serve(opsCtx, cfg.Ops.ListenAddr)
		}()
	}

	start := time.Now()
	records, stats, runErr := engine.Run(ctx)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := hub.Close(flushCtx); err != nil {
		logger.Warn("Progress hub did not flush cleanly", zap.Error(err))
	}
	flushCancel()

	// Whatever was harvested before a failure or cancellation is still
	// worth keeping, so the output is written unconditionally.
	if err := report.WriteRecords(cfg.Output.Path, records); err != nil {
		logger.Error("Failed to write records", zap.String("path", cfg.Output.Path), zap.Error(err))
	}
	if cfg.Output.SummaryPath != "" {
		info := report.RunInfo{
			RunID:    engine.RunID().String(),
			IndexURL: cfg.Crawler.IndexURL,
			Started:  start,
			Duration: time.Since(start),
			Stats:    stats,
			Records:  records,
		}
		if err := report.WriteSummary(cfg.Output.SummaryPath, info); err != nil {
			logger.Warn("Failed to write run summary", zap.String("path", cfg.Output.SummaryPath), zap.Error(err))
		}
	}

	if opsCancel != nil {
		opsCancel()
		if err := <-opsErr; err != nil {
			logger.Warn("Ops server exited with error", zap.Error(err))
		}
	}

	logger.Info("Crawl finished",
		zap.Int("records", len(records)),
		zap.Int("technique_mentions", stats.TotalTechniques),
		zap.Int("pages", stats.PagesScanned),
		zap.Bool("halted_by_cutoff", stats.HaltedByCutoff),
		zap.Duration("duration", time.Since(start)),
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("crawl run: %w", runErr)
	}
	return nil
}

// buildFetchClient assembles the HTTP client stack: a colly-backed fetcher
// wrapped with retries, and optionally a rendering promoter when headless
// rendering is enabled. The returned close function releases the renderer.
func buildFetchClient(cfg config.Config, logger *zap.Logger) (fetcher.Client, func(context.Context), error) {
	base, err := fetcher.NewCollyFetcher(cfg.Crawler, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build fetcher: %w", err)
	}

	var client fetcher.Client = fetcher.NewThrottlingClient(base, fetcher.NewDomainLimiter(cfg.Crawler.RateLimitPerDomain))
	client = fetcher.NewRetryingClient(client, fetcher.NewExponentialRetryPolicy(), logger)
	closeFn := func(context.Context) {}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if renderer != nil {
		client = fetcher.NewPromotingClient(client, renderer, fetcher.NewHeuristicDetector(cfg.Detector), logger)
		closeFn = func(ctx context.Context) {
			if err := renderer.Close(ctx); err != nil {
				logger.Warn("Renderer shutdown failed", zap.Error(err))
			}
		}
	}

	return client, closeFn, nil
}

func buildRenderer(cfg config.Config, logger *zap.Logger) (fetcher.Renderer, error) {
	if !cfg.Render.Enabled {
		return nil, nil
	}

	renderer, err := fetcher.NewChromedpRenderer(cfg.Render, cfg.Crawler.UserAgent, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, fetcher.ErrRendererDisabled):
		logger.Warn("Renderer disabled despite feature flag; falling back to fast path")
		return nil, nil
	default:
		return nil, fmt.Errorf("build renderer: %w", err)
	}
}
