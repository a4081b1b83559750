package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/adapters/extractors"
	"github.com/target/mediafetch/internal/adapters/reaper"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/observability/statsd"
)

// BuildExtractors wires the yt-dlp tool and page scraping fallbacks into one
// extractor per supported platform.
func BuildExtractors(cfg config.ExtractorConfig, logger *slog.Logger) ([]core.Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tool := extractors.NewYtdlpClient(extractors.YtdlpOptions{
		Executable:       cfg.YtdlpPath,
		ProgressInterval: cfg.ProgressInterval,
		Logger:           logger,
	})
	scraper := extractors.NewScraper(extractors.ScraperOptions{
		Client:    extractors.NewHTTPClient(cfg.HTTPTimeout),
		UserAgent: cfg.UserAgent,
		MaxBytes:  cfg.MaxPageBytes,
		Logger:    logger,
	})
	fetcher := extractors.NewFetcher(extractors.FetcherOptions{
		UserAgent: cfg.UserAgent,
		MaxBytes:  cfg.MaxMediaBytes,
		Logger:    logger,
	})

	all, err := extractors.All(extractors.BuildOptions{
		Options: extractors.Options{
			Tool:    tool,
			Scraper: scraper,
			Fetcher: fetcher,
			Logger:  logger,
		},
		DemoMode:      cfg.DemoMode,
		DemoStepDelay: cfg.DemoStepDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("build extractors: %w", err)
	}
	if cfg.DemoMode {
		logger.Warn("extractor demo mode enabled")
	}
	return all, nil
}

// ReaperConfig contains configuration for the reaper runner.
type ReaperConfig struct {
	Jobs    core.JobEvictor
	Sink    core.ArtifactSink
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper runs the finished-job reaper until ctx is cancelled.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Jobs:    cfg.Jobs,
		Sink:    cfg.Sink,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
