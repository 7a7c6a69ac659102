package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/internal/api"
	"github.com/skyfence/gpswatch/internal/config"
	"github.com/skyfence/gpswatch/internal/export"
	"github.com/skyfence/gpswatch/internal/storage/postgres"
	"github.com/skyfence/gpswatch/internal/storage/sqlite"
	"github.com/skyfence/gpswatch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the configuration file")
	serve := flag.Bool("serve", false, "serve the results API instead of running a batch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *serve); err != nil {
		log.Error("Run failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, serve bool) error {
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open analysis store: %w", err)
	}
	defer db.Close()

	results, err := sqlite.NewResultStore(db, log)
	if err != nil {
		return err
	}

	if serve {
		return serveAPI(ctx, cfg, results, log)
	}

	return runBatch(ctx, cfg, results, log)
}

// serveAPI exposes the persisted results over the read-only JSON API.
func serveAPI(ctx context.Context, cfg *config.Config, results *sqlite.ResultStore, log *logger.Logger) error {
	router := api.NewRouter(results, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("Serving results API", logger.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// runBatch iterates the configured date range one window at a time. Each
// window is independent: a failed window is logged and skipped, and its
// results are never partially persisted.
func runBatch(ctx context.Context, cfg *config.Config, results *sqlite.ResultStore, log *logger.Logger) error {
	analysisRange, err := cfg.AnalysisRange()
	if err != nil {
		return err
	}

	source, quality, cleanup, err := buildSource(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline := anomaly.NewPipeline(source, quality, cfg.Analysis.Workers, log)

	var writer *export.Writer
	if cfg.Export.Enabled {
		writer = export.NewWriter(cfg.Export.Dir, log)
	}

	// Pace window executions so a long backfill doesn't hammer the shared
	// warehouse.
	var limiter *rate.Limiter
	if cfg.Analysis.WindowsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.Analysis.WindowsPerMinute)/60.0), 1)
	}

	window := time.Duration(cfg.Analysis.WindowHours) * time.Hour
	var processed, failed int

	for cursor := analysisRange.Start; cursor.Before(analysisRange.End); cursor = cursor.Add(window) {
		next := cursor.Add(window)
		if next.After(analysisRange.End) {
			next = analysisRange.End
		}
		from, until := cursor.Unix(), next.Unix()

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("batch interrupted: %w", err)
			}
		} else if ctx.Err() != nil {
			return fmt.Errorf("batch interrupted: %w", ctx.Err())
		}

		log.Info("Processing window",
			logger.Int64("from", from),
			logger.Int64("until", until),
			logger.String("date", cursor.Format("2006-01-02")),
		)

		result, err := pipeline.Run(ctx, from, until)
		if err != nil {
			log.Error("Window failed",
				logger.Int64("from", from),
				logger.Int64("until", until),
				logger.Error(err),
			)
			failed++
			continue
		}

		if err := results.SaveWindow(result); err != nil {
			log.Error("Failed to persist window results",
				logger.Int64("from", from),
				logger.Error(err),
			)
			failed++
			continue
		}

		if writer != nil {
			if err := writer.WriteWindow(result); err != nil {
				log.Error("Failed to write window reports",
					logger.Int64("from", from),
					logger.Error(err),
				)
			}
		}

		processed++
	}

	log.Info("Batch complete",
		logger.Int("windows_processed", processed),
		logger.Int("windows_failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d windows failed", failed, processed+failed)
	}
	return nil
}

// buildSource constructs the configured report/quality source. The returned
// cleanup closes whatever connection the source holds.
func buildSource(cfg *config.Config, log *logger.Logger) (anomaly.ReportSource, anomaly.QualitySource, func(), error) {
	switch cfg.Source.Driver {
	case "postgres":
		db, err := postgres.Connect(cfg.Source.Postgres)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to warehouse: %w", err)
		}
		store := postgres.NewReportStore(db, cfg.Source.Table, log)
		return store, store, func() { db.Close() }, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open snapshot database: %w", err)
		}
		store := sqlite.NewReportStore(db, cfg.Source.Table, log)
		return store, store, func() { db.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported source driver: %s", cfg.Source.Driver)
	}
}
