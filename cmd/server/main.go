package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/ytmux/internal/api"
	"github.com/iconidentify/ytmux/internal/api/handler"
	"github.com/iconidentify/ytmux/internal/artifact"
	"github.com/iconidentify/ytmux/internal/catalog"
	"github.com/iconidentify/ytmux/internal/config"
	"github.com/iconidentify/ytmux/internal/downloader"
	"github.com/iconidentify/ytmux/internal/muxer"
	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/repository"
	"github.com/iconidentify/ytmux/internal/service"
	"github.com/iconidentify/ytmux/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ytmux %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ytmux",
		"version", Version,
		"build_time", BuildTime,
	)

	// .env is optional; real environment variables still win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Temp directory for per-job artifacts
	artifacts, err := artifact.NewManager(cfg.Storage.TempPath, logger)
	if err != nil {
		logger.Error("failed to prepare temp directory", "error", err)
		os.Exit(1)
	}

	jobRepo := repository.NewInMemoryJobRepository()

	// Clear anything a previous run left behind, then keep sweeping
	janitor := worker.NewJanitor(
		worker.Config{
			Interval: cfg.Storage.SweepInterval,
			MaxAge:   cfg.Storage.OrphanMaxAge,
		},
		artifacts,
		jobRepo,
		logger,
	)
	janitor.SweepOnce()
	janitor.Start()

	// Initialize dependencies
	httpClient := downloader.NewHTTPClient(cfg.Download)
	ytClient := downloader.NewYouTubeClient(httpClient)
	resolver := catalog.NewYouTubeResolver(ytClient)
	fetcher := downloader.NewYouTubeFetcher(ytClient, cfg.Download, logger)
	mux := muxer.NewFFmpegMuxer(cfg.Mux, logger)
	hub := progress.NewHub(64)

	if !mux.IsAvailable() {
		logger.Warn("ffmpeg not found, downloads will fail until it is installed",
			"ffmpeg_path", cfg.Mux.FFmpegPath,
		)
	}

	// Initialize services
	catalogSvc := service.NewCatalogService(resolver, logger)
	downloadSvc := service.NewDownloadService(
		resolver,
		fetcher,
		mux,
		artifacts,
		jobRepo,
		hub,
		cfg.Download,
		logger,
	)

	// Initialize handlers
	formatsHandler := handler.NewFormatsHandler(catalogSvc, logger)
	downloadHandler := handler.NewDownloadHandler(downloadSvc, logger)
	progressHandler := handler.NewProgressHandler(hub, cfg.Server.AllowedOrigins, logger)
	healthHandler := handler.NewHealthHandler(jobRepo, artifacts, mux, hub, cfg.Storage.MinFreeBytes)

	// Setup router
	router := api.NewRouter(formatsHandler, downloadHandler, progressHandler, healthHandler, cfg)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests; in-flight downloads get the remaining time
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := janitor.Stop(5 * time.Second); err != nil {
		logger.Error("janitor shutdown error", "error", err)
	}

	logger.Info("shutdown complete", "active_jobs", downloadSvc.ActiveJobs())
}
