// Package main provides the MEDLINE ingest CLI: it fetches citation XML
// from NCBI eUtils (or reads local distribution files), transforms the
// citations into nested key-value records, and persists them in PostgreSQL.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/medline-ingest-service/internal/config"
	"github.com/helixir/medline-ingest-service/internal/database"
	"github.com/helixir/medline-ingest-service/internal/eutils"
	"github.com/helixir/medline-ingest-service/internal/observability"
	"github.com/helixir/medline-ingest-service/internal/repository"
	"github.com/helixir/medline-ingest-service/internal/store"
)

// ingestLockKey guards against concurrent ingest runs against one database.
const ingestLockKey int64 = 0x6d65646c696e65

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Define CLI flags. Positional arguments are PMIDs, or file names in
	// attach mode.
	update := flag.Bool("update", false, "Refresh stored citations the staleness policy selects")
	force := flag.Bool("force", false, "Refresh every stored citation (implies -update)")
	attach := flag.Bool("attach", false, "Attach the files given as arguments to their PMIDs")
	xmlFile := flag.String("xml", "", "Load citations from a local MEDLINE XML file instead of eUtils")
	pmidFile := flag.String("pmid-file", "", "Read additional PMIDs from a file, one per line (- for stdin)")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *update {
		cfg.Dump.Update = true
	}
	if *force {
		cfg.Dump.Update = true
		cfg.Dump.Force = true
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "ingest").Logger()
	logger.Info().Msg("medline-ingest-service starting")

	metrics := observability.NewMetrics("medline_ingest")
	if cfg.Metrics.Enabled {
		serveMetrics(cfg.Metrics, logger)
	}

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		if err := autoMigrate(db, cfg.Database.MigrationPath, logger); err != nil {
			return err
		}
	}

	// One writer at a time; a second run against the same database exits
	// instead of interleaving batches.
	acquired, err := db.AcquireAdvisoryLock(ctx, ingestLockKey)
	if err != nil {
		return fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another ingest run is already active")
	}
	defer func() {
		if err := db.ReleaseAdvisoryLock(context.Background(), ingestLockKey); err != nil {
			logger.Warn().Err(err).Msg("failed to release ingest lock")
		}
	}()

	citationRepo := repository.NewPgCitationRepository(db)
	attachmentRepo := repository.NewPgAttachmentRepository(db)

	if *attach {
		attacher := store.NewAttacher(attachmentRepo, logger, metrics)
		results := attacher.AttachAll(ctx, flag.Args(), cfg.Dump.Force)
		logger.Info().Int("attached", len(results)).Msg("attach run finished")
		return nil
	}

	fetcher := eutils.New(eutils.Config{
		BaseURL:         cfg.EUtils.BaseURL,
		APIKey:          cfg.EUtils.APIKey,
		Timeout:         cfg.EUtils.Timeout,
		RequestInterval: cfg.EUtils.RequestInterval,
		FetchSize:       cfg.EUtils.FetchSize,
		MaxRetries:      cfg.EUtils.MaxRetries,
		RetryDelay:      cfg.EUtils.RetryDelay,
	})

	policy := store.UpdatePolicy{
		Update: cfg.Dump.Update,
		Force:  cfg.Dump.Force,
		MinAge: cfg.Dump.MinAge,
	}
	dumper := store.NewDumper(citationRepo, fetcher, policy, logger, metrics)

	if *xmlFile != "" {
		return dumpLocalFile(ctx, dumper, *xmlFile, logger)
	}

	pmids, err := collectPMIDs(flag.Args(), *pmidFile)
	if err != nil {
		return err
	}
	if len(pmids) == 0 {
		return fmt.Errorf("no PMIDs given; pass them as arguments or via -pmid-file")
	}

	runLogger := observability.WithDumpContext(logger, uuid.NewString(), cfg.Dump.Force)
	result, err := dumper.Dump(ctx, pmids)
	logResult(runLogger, result)
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d citations could not be saved", len(result.Failed))
	}
	return nil
}

// dumpLocalFile loads one MEDLINE distribution XML file into the store.
func dumpLocalFile(ctx context.Context, dumper *store.Dumper, path string, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := dumper.DumpStream(ctx, f)
	logResult(logger.With().Str("file", path).Logger(), result)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// collectPMIDs merges positional PMIDs with those read from an optional
// line-separated file.
func collectPMIDs(args []string, pmidFile string) ([]string, error) {
	pmids := append([]string{}, args...)
	if pmidFile == "" {
		return pmids, nil
	}

	var r *os.File
	if pmidFile == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(pmidFile)
		if err != nil {
			return nil, fmt.Errorf("open PMID file: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			pmids = append(pmids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read PMID file: %w", err)
	}
	return pmids, nil
}

// serveMetrics exposes the Prometheus endpoint in the background.
func serveMetrics(cfg config.MetricsConfig, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	go func() {
		logger.Info().Str("listen", cfg.Listen).Str("path", cfg.Path).Msg("metrics endpoint up")
		if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
			logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}

// autoMigrate applies pending migrations on startup.
func autoMigrate(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// logResult summarizes a dump run.
func logResult(logger zerolog.Logger, result *store.Result) {
	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("refused", result.Refused).
		Int("failed", len(result.Failed)).
		Msg("dump run finished")
}
