package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/data"
	"github.com/target/mediafetch/internal/domain/model"
	obserrors "github.com/target/mediafetch/internal/observability/errors"
	"github.com/target/mediafetch/internal/observability/metrics"
	"github.com/target/mediafetch/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Jobs    core.JobEvictor     // Required: registry to evict from
	Sink    core.ArtifactSink   // Optional: artifact storage, required to remove artifacts
	Config  config.ReaperConfig // Required: reaper configuration
	Clock   core.Clock          // Optional: defaults to wall time
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService bounds how long finished jobs stay pollable.
//
// This service manages:
// - Evicting completed jobs older than the completed max age.
// - Evicting failed jobs older than the failed max age.
// - Trimming finished jobs beyond the retention cap, oldest first.
// - Removing the artifacts of evicted completed jobs.
type ReaperService struct {
	jobs    core.JobEvictor
	sink    core.ArtifactSink
	config  config.ReaperConfig
	clock   core.Clock
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobEvictor is required")
	}
	if opts.Config.RemoveArtifacts && opts.Sink == nil {
		return nil, errors.New("ArtifactSink is required to remove artifacts")
	}

	cfg := opts.Config
	cfg.Sanitize()

	clock := opts.Clock
	if clock == nil {
		clock = data.WallClock{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", cfg.Interval,
			"completed_max_age", cfg.CompletedMaxAge,
			"failed_max_age", cfg.FailedMaxAge,
			"max_retained_jobs", cfg.MaxRetainedJobs,
			"remove_artifacts", cfg.RemoveArtifacts,
		)
	}

	return &ReaperService{
		jobs:    opts.Jobs,
		sink:    opts.Sink,
		config:  cfg,
		clock:   clock,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// RunOnce performs a single cleanup pass.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	var (
		errs    []error
		summary cleanupMetrics
	)

	steps := []cleanupStep{
		{fn: s.evictCompleted, label: "evict completed jobs", operation: "evict_completed"},
		{fn: s.evictFailed, label: "evict failed jobs", operation: "evict_failed"},
		{fn: s.trimRetained, label: "trim retained jobs", operation: "trim_retained"},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step)
		summary.ops = append(summary.ops, outcome)
		if outcome.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.label, outcome.err))
		}
	}

	summary.elapsed = time.Since(start)
	s.emitCleanupMetrics(summary)

	if len(errs) > 0 {
		return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
	}
	return nil
}

type cleanupFunc func(context.Context) (evicted []*model.Job)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	operation string
}

type cleanupStepOutcome struct {
	operation string
	evicted   int64
	removed   int64
	err       error
}

func (s *ReaperService) executeCleanupStep(ctx context.Context, step cleanupStep) cleanupStepOutcome {
	evicted := step.fn(ctx)
	outcome := cleanupStepOutcome{operation: step.operation, evicted: int64(len(evicted))}
	outcome.removed, outcome.err = s.removeArtifacts(ctx, evicted)

	if outcome.evicted > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, step.label,
			"count", outcome.evicted,
			"artifacts_removed", outcome.removed,
		)
	}
	return outcome
}

func (s *ReaperService) evictCompleted(context.Context) []*model.Job {
	cutoff := s.clock.Now().Add(-s.config.CompletedMaxAge)
	return s.jobs.EvictExpired(model.JobStatusCompleted, cutoff)
}

func (s *ReaperService) evictFailed(context.Context) []*model.Job {
	cutoff := s.clock.Now().Add(-s.config.FailedMaxAge)
	return s.jobs.EvictExpired(model.JobStatusFailed, cutoff)
}

func (s *ReaperService) trimRetained(context.Context) []*model.Job {
	if s.config.MaxRetainedJobs <= 0 {
		return nil
	}
	return s.jobs.EvictFinished(time.Time{}, s.config.MaxRetainedJobs)
}

// removeArtifacts deletes the files of evicted completed jobs. Files that are
// already gone are not errors.
func (s *ReaperService) removeArtifacts(ctx context.Context, evicted []*model.Job) (int64, error) {
	if !s.config.RemoveArtifacts || s.sink == nil {
		return 0, nil
	}

	var (
		removed int64
		errs    []error
	)
	for _, job := range evicted {
		if job.Status != model.JobStatusCompleted || job.Result == nil || job.Result.Path == "" {
			continue
		}
		if !s.sink.Exists(job.Result.Path) {
			continue
		}
		if err := s.sink.Remove(job.Result.Path); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
			continue
		}
		removed++
		if s.logger != nil {
			s.logger.DebugContext(ctx, "artifact removed", "job_id", job.ID, "file", job.Result.Filename)
		}
	}
	return removed, errors.Join(errs...)
}

type cleanupMetrics struct {
	ops     []cleanupStepOutcome
	elapsed time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	var (
		total    int64
		firstErr error
	)
	for _, op := range m.ops {
		total += op.evicted
		if firstErr == nil {
			firstErr = op.err
		}
	}

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if total == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if m.elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.elapsed, metrics.CloneTags(tags))
	}

	for _, op := range m.ops {
		s.emitCleanupOperationMetric(op)
	}

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(s.clock.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(op cleanupStepOutcome) {
	result := metrics.ResultSuccess
	if op.err != nil {
		result = metrics.ResultError
	} else if op.evicted == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": op.operation,
		"result":    result,
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if op.evicted > 0 {
		s.metrics.Count("reaper.evicted", op.evicted, metrics.CloneTags(tags))
	}
	if op.removed > 0 {
		s.metrics.Count("reaper.artifacts_removed", op.removed, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
