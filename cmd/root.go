package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/app"
	"github.com/karlseb/ttpharvest/internal/archive"
	"github.com/karlseb/ttpharvest/internal/config"
	"github.com/karlseb/ttpharvest/internal/logging"
	"github.com/karlseb/ttpharvest/internal/publish"
	"github.com/karlseb/ttpharvest/internal/store"
	pkgconfig "github.com/karlseb/ttpharvest/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows us
// to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetStore() store.Provider
	GetArchive() archive.Provider
	GetPublisher() publish.Provider
}

// newApp is the application factory. It's a variable so we can replace it
// with a mock factory in tests.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.New(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ttpharvest",
		Short: "Harvests ATT&CK technique records from public security advisories.",
		Long: `ttpharvest walks the CISA cybersecurity advisory index, extracts
MITRE ATT&CK technique identifiers from each advisory, resolves them
against the ATT&CK taxonomy, and emits structured JSON records with the
advisory summary and mitigations.`,

		// This hook runs AFTER config is loaded but BEFORE the subcommand's
		// RunE, so it is the place to build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() {
		pkgconfig.InitConfig(cfgFile)
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/ttpharvest, $HOME/.ttpharvest)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newIngestCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start.
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
