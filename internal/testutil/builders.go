package testutil

import (
	"time"

	"github.com/target/mediafetch/internal/domain/model"
)

// JobBuilder provides a fluent interface for building jobs in tests.
type JobBuilder struct {
	job *model.Job
}

// NewJob starts a queued YouTube job with sensible defaults.
func NewJob(id string) *JobBuilder {
	return &JobBuilder{
		job: model.NewJob(id, "https://www.youtube.com/watch?v="+id, model.FormatBest, model.PlatformYouTube, TestTime()),
	}
}

// WithURL sets the URL and platform.
func (b *JobBuilder) WithURL(url string, platform model.PlatformKind) *JobBuilder {
	b.job.URL = url
	b.job.Platform = platform
	return b
}

// WithFormat sets the format hint.
func (b *JobBuilder) WithFormat(hint string) *JobBuilder {
	b.job.FormatHint = hint
	return b
}

// CreatedAt sets the creation time.
func (b *JobBuilder) CreatedAt(at time.Time) *JobBuilder {
	b.job.CreatedAt = at
	return b
}

// Running marks the job running at the given progress.
func (b *JobBuilder) Running(progress int) *JobBuilder {
	started := b.job.CreatedAt
	b.job.Status = model.JobStatusRunning
	b.job.StartedAt = &started
	b.job.ProgressPercent = progress
	return b
}

// Completed marks the job completed with an artifact at path.
func (b *JobBuilder) Completed(path, filename string, size int64, at time.Time) *JobBuilder {
	b.job.Complete(&model.ExtractionResult{
		Success:  true,
		Title:    "Test Title",
		Path:     path,
		Filename: filename,
		Size:     size,
		Format:   b.job.FormatHint,
	}, at)
	return b
}

// Failed marks the job failed.
func (b *JobBuilder) Failed(detail string, at time.Time) *JobBuilder {
	b.job.Fail(detail, at)
	return b
}

// Build returns the job.
func (b *JobBuilder) Build() *model.Job {
	return b.job.Clone()
}
