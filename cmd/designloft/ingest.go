package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/psykeus/designloft/internal/catalog"
	"github.com/psykeus/designloft/internal/config"
	"github.com/psykeus/designloft/internal/ingest"
	"github.com/psykeus/designloft/internal/logger"
	"github.com/psykeus/designloft/internal/metadata"
	"github.com/psykeus/designloft/internal/preview"
	"github.com/psykeus/designloft/internal/storage"
)

func newIngestCommand() *cobra.Command {
	var (
		dryRun    bool
		envFile   string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Scan a directory of design files into the catalog",
		Long: `Walks the given directory for design files (svg, dxf, ai, eps, pdf, cdr),
skips exact duplicates, versions files re-ingested from the same path, and
registers new designs with previews, AI metadata, and tags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], dryRun, envFile, logLevel, logFormat)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would happen without uploading or writing records")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to an env file with credentials")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "log format (pretty, json)")

	return cmd
}

func runIngest(cmd *cobra.Command, dir string, dryRun bool, envFile, logLevel, logFormat string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logger.Format = logFormat
	}

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Fatal("not a directory", "path", dir)
	}

	runID := uuid.NewString()
	log.Info("starting ingestion",
		"run_id", runID,
		"dir", dir,
		"dry_run", dryRun,
		"ai_enabled", cfg.AIEnabled(),
	)

	db, err := catalog.Open(cfg.Catalog.DatabaseDSN)
	if err != nil {
		log.Fatal("could not open catalog database", "error", err)
	}
	if err := catalog.Migrate(db); err != nil {
		log.Fatal("could not migrate catalog", "error", err)
	}

	store := catalog.NewStore(db, log.Logger)
	uploader := storage.New(cfg.Catalog.URL, cfg.Catalog.ServiceKey, log.Logger)
	previews := preview.NewResolver(log.Logger)
	extractor := metadata.NewExtractor(cfg.AI.APIKey, cfg.AI.Model, log.Logger)

	var bar *pterm.ProgressbarPrinter
	opts := ingest.Options{
		DryRun: dryRun,
		OnProgress: func(processed, total int, path string) {
			if bar == nil {
				bar, _ = pterm.DefaultProgressbar.
					WithTotal(total).
					WithTitle("Ingesting").
					Start()
			}
			if bar != nil {
				bar.Increment()
			}
		},
	}

	ingester := ingest.New(store, uploader, previews, extractor, log.Logger, opts)
	stats, err := ingester.Run(cmd.Context(), dir)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		log.Fatal("ingestion aborted", "run_id", runID, "error", err)
	}

	printSummary(stats)
	log.Info("ingestion finished", "run_id", runID)
	return nil
}

func printSummary(stats ingest.Stats) {
	pterm.DefaultSection.Println("Ingestion Summary")
	pterm.DefaultTable.WithData(pterm.TableData{
		{"Files scanned", fmt.Sprintf("%d", stats.Scanned)},
		{"Duplicates skipped", fmt.Sprintf("%d", stats.SkippedDuplicate)},
		{"New designs", fmt.Sprintf("%d", stats.NewDesigns)},
		{"New versions", fmt.Sprintf("%d", stats.NewVersions)},
		{"Previews generated", fmt.Sprintf("%d", stats.PreviewsGenerated)},
		{"Errors", fmt.Sprintf("%d", stats.Errors)},
	}).Render()
}
