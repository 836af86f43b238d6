// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the commands.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/archive"
	"github.com/karlseb/ttpharvest/internal/config"
	"github.com/karlseb/ttpharvest/internal/logging"
	"github.com/karlseb/ttpharvest/internal/metrics"
	"github.com/karlseb/ttpharvest/internal/publish"
	"github.com/karlseb/ttpharvest/internal/publish/memory"
	"github.com/karlseb/ttpharvest/internal/publish/pubsub"
	"github.com/karlseb/ttpharvest/internal/store"
	storepg "github.com/karlseb/ttpharvest/internal/store/postgres"
)

// App holds the shared, long-lived services for the application: the typed
// configuration, the logger, and the record store, archive, and publisher
// providers selected by that configuration. It is initialized once at
// startup and passed to the command that needs it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     store.Provider
	archive   archive.Provider
	publisher publish.Provider
}

// GetConfig returns the loaded application configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetStore exposes the configured advisory record store.
func (a *App) GetStore() store.Provider {
	return a.store
}

// GetArchive exposes the configured raw HTML archive.
func (a *App) GetArchive() archive.Provider {
	return a.archive
}

// GetPublisher returns the publisher used to forward harvested records.
func (a *App) GetPublisher() publish.Provider {
	return a.publisher
}

// New creates and initializes an App from the global Viper configuration.
// It is the central point for service initialization and fails fast if any
// critical service cannot be constructed.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := logging.Reconfigure(cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	l := logging.L
	l.Info("Initializing application services...")

	metrics.Init()

	recordStore, err := newStore(ctx, cfg.Store, l)
	if err != nil {
		return nil, fmt.Errorf("initialize record store: %w", err)
	}
	blobs, err := newArchive(ctx, cfg.Archive, l)
	if err != nil {
		recordStore.Close()
		return nil, fmt.Errorf("initialize archive: %w", err)
	}
	pub, err := newPublisher(ctx, cfg.Publish, l)
	if err != nil {
		recordStore.Close()
		return nil, fmt.Errorf("initialize publisher: %w", err)
	}

	l.Info("Application services initialized successfully.")
	return &App{
		cfg:       cfg,
		logger:    l,
		store:     recordStore,
		archive:   blobs,
		publisher: pub,
	}, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig, l *zap.Logger) (store.Provider, error) {
	switch cfg.Provider {
	case "", "noop":
		l.Info("Using No-Op record store. Records go to the output file only.")
		return store.NoOp{}, nil
	case "postgres":
		l.Info("Connecting to PostgreSQL record store...")
		return storepg.NewAdvisoryStore(ctx, storepg.AdvisoryStoreConfig{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Provider)
	}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig, l *zap.Logger) (archive.Provider, error) {
	var (
		provider archive.Provider
		err      error
	)
	switch cfg.Provider {
	case "", "noop":
		l.Info("Using No-Op archive provider. Raw advisory HTML will be discarded.")
		return archive.NoOp{}, nil
	case "memory":
		l.Info("Using in-memory archive provider. Raw advisory HTML stays in process.")
		provider = archive.NewMemoryProvider()
	case "gcs":
		l.Info("Using GCS archive provider", zap.String("bucket", cfg.GCSBucket))
		provider, err = archive.NewGCSProvider(ctx, cfg.GCSBucket)
	case "local":
		l.Info("Using local archive provider", zap.String("dir", cfg.LocalDir))
		provider, err = archive.NewLocalProvider(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return archive.NewPrefixed(provider, cfg.Prefix), nil
}

func newPublisher(ctx context.Context, cfg config.PublishConfig, l *zap.Logger) (publish.Provider, error) {
	switch cfg.Provider {
	case "", "noop":
		l.Info("Using No-Op publisher. No messages will be sent.")
		return publish.NoOp{}, nil
	case "memory":
		l.Info("Using in-memory publisher. Messages stay in process.")
		return memory.New(), nil
	case "pubsub":
		l.Info("Connecting to GCP Pub/Sub", zap.String("project", cfg.ProjectID), zap.String("topic", cfg.TopicID))
		return pubsub.New(ctx, cfg.ProjectID, cfg.TopicID)
	default:
		return nil, fmt.Errorf("unknown publish provider: %s", cfg.Provider)
	}
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	a.publisher.Close()
	a.store.Close()

	// Flush buffered log entries before the process exits. Sync on stderr
	// can fail on some platforms; nothing useful can be done about it here.
	_ = a.logger.Sync()
}
