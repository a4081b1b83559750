// Package reaper provides adapters for running the job reaper.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/observability/statsd"
	"github.com/target/mediafetch/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Jobs    core.JobEvictor
	Sink    core.ArtifactSink
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job registry is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Jobs:    opts.Jobs,
		Sink:    opts.Sink,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
