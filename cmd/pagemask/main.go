package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/config"
	"github.com/pagemask/pagemask/internal/detect"
	"github.com/pagemask/pagemask/internal/lang"
	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/ocr"
	"github.com/pagemask/pagemask/internal/pipeline"
	"github.com/pagemask/pagemask/internal/preprocess"
	"github.com/pagemask/pagemask/internal/raster"
	"github.com/pagemask/pagemask/internal/redact"
	"github.com/pagemask/pagemask/internal/report"
	"github.com/pagemask/pagemask/internal/server"
	"github.com/pagemask/pagemask/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("pagemask %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting pagemask",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Document store
	documentStore, err := store.NewStore(&store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log.WithComponent("store"))
	if err != nil {
		log.Fatal("Failed to create document store", zap.Error(err))
	}
	defer documentStore.Close()

	// Append-only report log
	reportLog, err := report.NewLog(cfg.Pipeline.ReportPath)
	if err != nil {
		log.Fatal("Failed to create report log", zap.Error(err))
	}

	// OCR engine: constructed once, reused for every page
	ocrClient, err := ocr.New(cfg.Pipeline.OCRLanguage)
	if err != nil {
		log.Fatal("Failed to create OCR client", zap.Error(err))
	}
	defer ocrClient.Close()

	// Per-page pipeline
	matcher := detect.NewMatcher(log.WithComponent("detect"))
	renderer := redact.New(color.RGBA{
		R: cfg.Redaction.FillR,
		G: cfg.Redaction.FillG,
		B: cfg.Redaction.FillB,
	})

	processor, err := pipeline.NewPageProcessor(
		ocrClient,
		lang.NewDetector(),
		matcher,
		renderer,
		cfg.Pipeline.OutputDir,
		log.WithComponent("pipeline"),
	)
	if err != nil {
		log.Fatal("Failed to create page processor", zap.Error(err))
	}

	ingestor := pipeline.NewDocumentIngestor(
		raster.NewLoader(cfg.Pipeline.DPI, cfg.Pipeline.MaxPages, log.WithComponent("raster")),
		preprocess.NewFilter(),
		processor,
		reportLog,
		log.WithComponent("pipeline"),
	)

	// HTTP server
	srv, err := server.New(cfg, log, ingestor, documentStore)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Note config file changes; a restart is required to apply them.
	config.Watch(cfg, func(newCfg *config.Config) {
		log.Info("Configuration file changed; restart to apply")
	})

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8000/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
