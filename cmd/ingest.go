package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/iocfeed"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Extracts report metadata from a local IOC feed mirror.",
		Long: `ingest walks a local checkout of the Talos IOC repository, pulls the
report title and date out of each JSON feed file, and maps every file
back to its upstream raw URL. Point ingest.root at the mirror directory.`,
		RunE: runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig().Ingest
	logger := appInstance.GetLogger()

	reports, err := iocfeed.NewIngester(cfg.Root, cfg.BaseURL, logger).Walk()
	if err != nil {
		return fmt.Errorf("walk feed root: %w", err)
	}

	for _, r := range reports {
		logger.Info("feed report",
			zap.String("url", r.URL),
			zap.String("title", r.Title),
			zap.String("date", r.Date),
		)
	}

	if cfg.OutputPath != "" {
		if err := iocfeed.WriteReports(cfg.OutputPath, reports); err != nil {
			return fmt.Errorf("write reports: %w", err)
		}
	}

	logger.Info("Ingest finished", zap.Int("reports", len(reports)))
	return nil
}
