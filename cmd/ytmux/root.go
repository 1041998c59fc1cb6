package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iconidentify/ytmux/internal/artifact"
	"github.com/iconidentify/ytmux/internal/catalog"
	"github.com/iconidentify/ytmux/internal/config"
	"github.com/iconidentify/ytmux/internal/downloader"
	"github.com/iconidentify/ytmux/internal/muxer"
	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/repository"
	"github.com/iconidentify/ytmux/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "ytmux",
		Short:        "List encodings and download muxed videos from the command line",
		Version:      fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newFormatsCmd(opts),
		newDownloadCmd(opts),
		newSweepCmd(opts),
	)
	return cmd
}

// app holds the wired components shared by subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifact.Manager
	hub       *progress.Hub
	catalog   *service.CatalogService
	downloads *service.DownloadService
}

func (o *globalOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) loadConfig(logger *slog.Logger) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}
	return config.Load(o.configPath)
}

// newApp wires the same components the server uses.
func (o *globalOptions) newApp() (*app, error) {
	logger := o.logger()

	cfg, err := o.loadConfig(logger)
	if err != nil {
		return nil, err
	}

	artifacts, err := artifact.NewManager(cfg.Storage.TempPath, logger)
	if err != nil {
		return nil, err
	}

	httpClient := downloader.NewHTTPClient(cfg.Download)
	ytClient := downloader.NewYouTubeClient(httpClient)
	resolver := catalog.NewYouTubeResolver(ytClient)
	fetcher := downloader.NewYouTubeFetcher(ytClient, cfg.Download, logger)
	mux := muxer.NewFFmpegMuxer(cfg.Mux, logger)
	hub := progress.NewHub(64)

	return &app{
		cfg:       cfg,
		logger:    logger,
		artifacts: artifacts,
		hub:       hub,
		catalog:   service.NewCatalogService(resolver, logger),
		downloads: service.NewDownloadService(
			resolver,
			fetcher,
			mux,
			artifacts,
			repository.NewInMemoryJobRepository(),
			hub,
			cfg.Download,
			logger,
		),
	}, nil
}
