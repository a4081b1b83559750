package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/data"
	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/domain/platform"
	apperrors "github.com/target/mediafetch/internal/errors"
	"github.com/target/mediafetch/internal/observability/metrics"
	"github.com/target/mediafetch/internal/observability/statsd"
)

// Failure details recorded on jobs.
const (
	detailUnsupported = "unsupported platform"
	detailCanceled    = "download canceled"
	detailMissing     = "artifact missing after download"
)

// infoErrorLimit caps the cause text returned from QueryInfo.
const infoErrorLimit = 200

var (
	errJobCanceled  = errors.New(detailCanceled)
	errShuttingDown = errors.New("download engine shutting down")
	errFinished     = errors.New("job already finished")
)

// DownloadServiceOptions groups dependencies for DownloadService.
type DownloadServiceOptions struct {
	Registry   core.JobRegistry          // Required: job state
	Extractors *ExtractorRegistry        // Required: per-platform strategies
	Sink       core.ArtifactSink         // Required: artifact storage
	Config     config.OrchestratorConfig // Optional: zero values are sanitized to defaults
	InfoCache  *InfoCacheService         // Optional: content-info cache
	Clock      core.Clock                // Optional: defaults to wall time
	Logger     *slog.Logger              // Optional: structured logger
	Metrics    statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	NewID      func() string             // Optional: job id generator, defaults to UUIDv4
}

// Artifact is a completed job's file opened for reading. Callers close Content.
type Artifact struct {
	Job      *model.Job
	Filename string
	Size     int64
	Content  io.ReadSeekCloser
}

// Stats summarises registry state and worker pool occupancy.
type Stats struct {
	model.JobStats
	ActiveTasks  int `json:"activeTasks"`
	WaitingTasks int `json:"waitingTasks"`
}

// task is the handle for one tracked job goroutine.
type task struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// DownloadService orchestrates download jobs.
//
// This service manages:
// - Classifying submissions and dispatching them to extractors.
// - A semaphore-bounded worker pool with queue-length backpressure.
// - Relaying extractor progress into the job registry.
// - Verifying artifacts before a job completes.
// - Cancellation, per-job timeouts and graceful shutdown.
type DownloadService struct {
	registry   core.JobRegistry
	extractors *ExtractorRegistry
	sink       core.ArtifactSink
	cfg        config.OrchestratorConfig
	infoCache  *InfoCacheService
	clock      core.Clock
	logger     *slog.Logger
	metrics    statsd.Sink
	newID      func() string

	sem   *semaphore.Weighted
	group errgroup.Group
	base  context.Context
	stop  context.CancelCauseFunc

	mu      sync.Mutex
	tasks   map[string]*task
	waiting int
	active  int
	closed  bool
}

// NewDownloadService constructs a new DownloadService.
func NewDownloadService(opts DownloadServiceOptions) (*DownloadService, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}
	if opts.Extractors == nil {
		return nil, errors.New("ExtractorRegistry is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("ArtifactSink is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	clock := opts.Clock
	if clock == nil {
		clock = data.WallClock{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "download_service")
	logger.Debug("DownloadService initialized",
		"max_concurrent_jobs", cfg.MaxConcurrentJobs,
		"max_queued_jobs", cfg.MaxQueuedJobs,
		"job_timeout", cfg.JobTimeout,
	)

	base, stop := context.WithCancelCause(context.Background())
	return &DownloadService{
		registry:   opts.Registry,
		extractors: opts.Extractors,
		sink:       opts.Sink,
		cfg:        cfg,
		infoCache:  opts.InfoCache,
		clock:      clock,
		logger:     logger,
		metrics:    opts.Metrics,
		newID:      newID,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		base:       base,
		stop:       stop,
		tasks:      make(map[string]*task),
	}, nil
}

// SubmitDownload records a queued job for url and schedules it. It returns
// as soon as the job exists; progress is observed through GetStatus.
func (s *DownloadService) SubmitDownload(ctx context.Context, url, formatHint string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", apperrors.InvalidField("url", "url is required")
	}
	hint := model.NormalizeFormatHint(formatHint)
	kind := platform.Classify(url)

	var ex core.Extractor
	var lookupErr error
	if kind.Supported() {
		ex, lookupErr = s.extractors.Lookup(kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", apperrors.Capacity("download engine is shutting down")
	}
	schedule := ex != nil
	if schedule && s.cfg.MaxQueuedJobs > 0 && s.waiting >= s.cfg.MaxQueuedJobs {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Platform: kind.String(), Format: hint, Transition: metrics.TransitionRejected, Result: metrics.ResultError,
		})
		return "", apperrors.Capacity(fmt.Sprintf("download queue is full (%d waiting)", s.waiting))
	}

	id := s.newID()
	job := model.NewJob(id, url, hint, kind, s.clock.Now())
	if err := s.registry.Create(job); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "download submitted", "job_id", id, "platform", kind, "format", hint)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Platform: kind.String(), Format: hint, Transition: metrics.TransitionSubmitted, Result: metrics.ResultSuccess,
	})

	if !schedule {
		detail := detailUnsupported
		if lookupErr != nil {
			detail = lookupErr.Error()
		}
		s.fail(job, detail, nil)
		return id, nil
	}

	taskCtx, cancel := context.WithCancelCause(s.base)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[id] = t
	s.waiting++
	s.group.Go(func() error {
		s.runTask(taskCtx, t, job, ex)
		return nil
	})
	return id, nil
}

// runTask owns a job from the moment it waits for a worker slot until it is terminal.
func (s *DownloadService) runTask(ctx context.Context, t *task, job *model.Job, ex core.Extractor) {
	defer close(t.done)
	defer s.forget(job.ID)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("download task panicked", "job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
			s.fail(job, fmt.Sprintf("internal error: %v", r), fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.leaveQueue(false)
		s.fail(job, detailCanceled, context.Cause(ctx))
		return
	}
	s.leaveQueue(true)
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.sem.Release(1)
	}()

	started := s.clock.Now()
	if _, err := s.registry.Mutate(job.ID, func(j *model.Job) error {
		if j.Status != model.JobStatusQueued {
			return errFinished
		}
		j.Status = model.JobStatusRunning
		j.StartedAt = &started
		return nil
	}); err != nil {
		// Canceled while waiting for a slot.
		return
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Platform: job.Platform.String(), Format: job.FormatHint, Transition: metrics.TransitionStarted, Result: metrics.ResultSuccess,
	})

	target, err := s.sink.ReserveName(job.Platform, model.ArtifactDescriptor{
		ID:  platform.ContentID(job.Platform, job.URL),
		Ext: model.ExtensionForHint(job.FormatHint),
	})
	if err != nil {
		s.fail(job, "could not reserve artifact: "+err.Error(), err)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	logger := s.logger.With("job_id", job.ID, "platform", job.Platform, "format", job.FormatHint)
	logger.Debug("extractor starting", "target", target.Path)

	res, err := s.invoke(runCtx, ex, core.FetchRequest{URL: job.URL, FormatHint: job.FormatHint, Target: target}, s.relay(job.ID))
	if err != nil {
		s.discard(target, nil)
		s.fail(job, s.failureDetail(ctx, runCtx, err), err)
		return
	}

	if err := s.verify(res); err != nil {
		s.discard(target, res)
		s.fail(job, err.Error(), err)
		return
	}
	if res.Path != target.Path {
		_ = s.sink.Remove(target.Path)
	}

	s.finalize(job.ID)
	finished := s.clock.Now()
	if _, err := s.registry.Mutate(job.ID, func(j *model.Job) error {
		if j.Status != model.JobStatusFinalizing {
			return errFinished
		}
		j.Complete(res, finished)
		return nil
	}); err != nil {
		// Canceled after the extractor returned; the artifact has no owner now.
		s.discard(target, res)
		return
	}

	logger.Info("download completed",
		"file", res.Filename,
		"size", humanize.Bytes(uint64(max(res.Size, 0))),
		"elapsed", finished.Sub(started).Round(time.Millisecond),
	)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Platform:   job.Platform.String(),
		Format:     job.FormatHint,
		Transition: metrics.TransitionCompleted,
		Result:     metrics.ResultSuccess,
		Duration:   finished.Sub(started),
		Bytes:      res.Size,
	})
}

// invoke runs the extractor, converting a panic into an error.
func (s *DownloadService) invoke(
	ctx context.Context,
	ex core.Extractor,
	req core.FetchRequest,
	progress core.ProgressFunc,
) (res *model.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extractor panicked", "platform", ex.Platform(), "panic", r, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return ex.FetchMedia(ctx, req, progress)
}

// relay forwards extractor progress into the registry. Values are clamped to
// 99 while running; 100 moves the job to finalizing.
func (s *DownloadService) relay(id string) core.ProgressFunc {
	return func(percent int) {
		if percent >= 100 {
			s.finalize(id)
			return
		}
		percent = max(percent, 0)
		_, _ = s.registry.Mutate(id, func(j *model.Job) error {
			if j.Status != model.JobStatusRunning || percent <= j.ProgressPercent {
				return core.ErrNoChange
			}
			j.ProgressPercent = percent
			return nil
		})
	}
}

func (s *DownloadService) finalize(id string) {
	_, _ = s.registry.Mutate(id, func(j *model.Job) error {
		if j.Status != model.JobStatusRunning {
			return core.ErrNoChange
		}
		j.Status = model.JobStatusFinalizing
		j.ProgressPercent = 99
		return nil
	})
}

// verify checks that the extractor's artifact is a file inside the storage root.
func (s *DownloadService) verify(res *model.ExtractionResult) error {
	if res == nil || res.Path == "" {
		return errors.New(detailMissing)
	}
	if !s.sink.Contains(res.Path) {
		return fmt.Errorf("artifact %s is outside the storage root", res.Filename)
	}
	if !s.sink.Exists(res.Path) {
		return errors.New(detailMissing)
	}
	if res.Size <= 0 {
		rc, size, err := s.sink.Open(res.Path)
		if err != nil {
			return err
		}
		_ = rc.Close()
		res.Size = size
	}
	return nil
}

// discard removes the reserved placeholder and any artifact the extractor reported.
func (s *DownloadService) discard(target model.Target, res *model.ExtractionResult) {
	_ = s.sink.Remove(target.Path)
	if res != nil && res.Path != "" && res.Path != target.Path && s.sink.Contains(res.Path) {
		_ = s.sink.Remove(res.Path)
	}
}

func (s *DownloadService) failureDetail(taskCtx, runCtx context.Context, err error) string {
	switch {
	case taskCtx.Err() != nil:
		return detailCanceled
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("download timed out after %s", s.cfg.JobTimeout)
	default:
		return err.Error()
	}
}

// fail moves a non-terminal job to failed. A job that is already terminal is left alone.
func (s *DownloadService) fail(job *model.Job, detail string, cause error) {
	now := s.clock.Now()
	changed := false
	updated, err := s.registry.Mutate(job.ID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return core.ErrNoChange
		}
		j.Fail(detail, now)
		changed = true
		return nil
	})
	if err != nil || !changed {
		return
	}

	s.logger.Warn("download failed", "job_id", job.ID, "platform", job.Platform, "format", job.FormatHint, "error", detail)
	transition := metrics.TransitionFailed
	if detail == detailCanceled {
		transition = metrics.TransitionCanceled
	}
	if cause == nil {
		cause = errors.New(detail)
	}
	var elapsed time.Duration
	if updated.StartedAt != nil {
		elapsed = now.Sub(*updated.StartedAt)
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Platform:   job.Platform.String(),
		Format:     job.FormatHint,
		Transition: transition,
		Result:     metrics.ResultError,
		Duration:   elapsed,
		Err:        cause,
	})
}

func (s *DownloadService) leaveQueue(acquired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting--
	if acquired {
		s.active++
	}
	metrics.EmitPoolGauges(s.metrics, s.active, s.waiting)
}

func (s *DownloadService) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.cancel(nil)
		delete(s.tasks, id)
	}
}

// QueryInfo probes metadata for url without creating a job.
func (s *DownloadService) QueryInfo(ctx context.Context, url string) (*model.ContentInfo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.InvalidField("url", "url is required")
	}
	kind := platform.Classify(url)
	if !kind.Supported() {
		return nil, apperrors.UnsupportedPlatform(detailUnsupported)
	}
	ex, err := s.extractors.Lookup(kind)
	if err != nil {
		return nil, err
	}

	if s.infoCache != nil {
		if info, ok := s.infoCache.Get(ctx, kind, url); ok {
			metrics.EmitInfoLookup(s.metrics, kind.String(), "hit", nil)
			return info, nil
		}
	}
	cacheTag := "off"
	if s.infoCache != nil {
		cacheTag = "miss"
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.InfoTimeout)
	defer cancel()

	info, err := ex.FetchInfo(probeCtx, url)
	if err == nil && info == nil {
		err = errors.New("extractor returned no metadata")
	}
	if err != nil {
		s.logger.WarnContext(ctx, "info lookup failed", "platform", kind, "error", err)
		wrapped := apperrors.Extraction(&limitedError{text: cut(err.Error(), infoErrorLimit), cause: err}, "content info lookup failed")
		metrics.EmitInfoLookup(s.metrics, kind.String(), cacheTag, wrapped)
		return nil, wrapped
	}

	metrics.EmitInfoLookup(s.metrics, kind.String(), cacheTag, nil)
	if s.infoCache != nil {
		s.infoCache.Put(ctx, kind, url, info)
	}
	return info, nil
}

// limitedError shortens a cause's text while keeping it reachable through errors.Is/As.
type limitedError struct {
	text  string
	cause error
}

func (e *limitedError) Error() string { return e.text }
func (e *limitedError) Unwrap() error { return e.cause }

func cut(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// GetStatus returns a snapshot of the job.
func (s *DownloadService) GetStatus(_ context.Context, id string) (*model.Job, error) {
	job, ok := s.registry.Get(id)
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job, nil
}

// FetchArtifact opens a completed job's artifact.
func (s *DownloadService) FetchArtifact(ctx context.Context, id string) (*Artifact, error) {
	job, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, apperrors.NotReadyf("job %s is %s", id, job.Status)
	}
	if job.Result == nil || !s.sink.Exists(job.Result.Path) {
		return nil, apperrors.MissingArtifact(fmt.Sprintf("artifact for job %s is no longer available", id))
	}

	content, size, err := s.sink.Open(job.Result.Path)
	if err != nil {
		return nil, err
	}
	return &Artifact{Job: job, Filename: job.Result.Filename, Size: size, Content: content}, nil
}

// ListJobs returns every tracked job, newest first.
func (s *DownloadService) ListJobs(_ context.Context) []*model.Job {
	return s.registry.List()
}

// CancelJob fails a queued or running job and stops its task.
func (s *DownloadService) CancelJob(ctx context.Context, id string) error {
	now := s.clock.Now()
	job, err := s.registry.Mutate(id, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return errFinished
		}
		j.Fail(detailCanceled, now)
		return nil
	})
	if errors.Is(err, errFinished) {
		current, _ := s.registry.Get(id)
		status := model.JobStatusCompleted
		if current != nil {
			status = current.Status
		}
		return apperrors.Conflictf("job %s is already %s", id, status)
	}
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "download canceled", "job_id", id, "platform", job.Platform)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Platform: job.Platform.String(), Format: job.FormatHint, Transition: metrics.TransitionCanceled,
		Result: metrics.ResultError, Err: errJobCanceled,
	})

	s.mu.Lock()
	t := s.tasks[id]
	s.mu.Unlock()
	if t == nil {
		return nil
	}
	t.cancel(errJobCanceled)
	select {
	case <-t.done:
	case <-ctx.Done():
	}
	return nil
}

// Platforms lists the platforms with a registered extractor.
func (s *DownloadService) Platforms() []model.PlatformKind {
	return s.extractors.Platforms()
}

// Stats reports job counts and pool occupancy.
func (s *DownloadService) Stats() Stats {
	var out Stats
	for _, job := range s.registry.List() {
		out.Add(job.Status)
	}
	s.mu.Lock()
	out.ActiveTasks = s.active
	out.WaitingTasks = s.waiting
	s.mu.Unlock()
	return out
}

// Shutdown refuses new submissions, cancels every task and waits for them
// to finish or for ctx to expire.
func (s *DownloadService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := len(s.tasks)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "download service stopping", "pending_tasks", pending)
	s.stop(errShuttingDown)

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
