package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/target/mediafetch/internal/domain/model"
)

// This file contains the port definitions (hexagonal architecture) between
// the orchestration service and its adapters. Services depend on these
// interfaces, never on concrete implementations.

// ProgressFunc receives incremental completion percentages in [0,100] from an extractor.
type ProgressFunc func(percent int)

// FetchRequest describes one media retrieval.
type FetchRequest struct {
	URL        string
	FormatHint string
	// Target is the location reserved by the ArtifactSink. Extractors write
	// there (or to Target.WithExt when a fallback changes the container).
	Target model.Target
}

// Extractor is the per-platform strategy contract.
type Extractor interface {
	// Platform reports which platform this extractor serves.
	Platform() model.PlatformKind
	// FetchInfo performs a read-only metadata probe. Failures are ExtractionErrors.
	FetchInfo(ctx context.Context, url string) (*model.ContentInfo, error)
	// FetchMedia retrieves the media into req.Target. Failures are DownloadErrors and
	// leave no partial artifact behind.
	FetchMedia(ctx context.Context, req FetchRequest, progress ProgressFunc) (*model.ExtractionResult, error)
}

// ErrNoChange is returned by a JobRegistry.Mutate updater to skip the write.
var ErrNoChange = errors.New("no change")

// JobRegistry is the in-memory source of truth for job state.
type JobRegistry interface {
	Create(job *model.Job) error
	Get(id string) (*model.Job, bool)
	// Mutate applies fn to a copy of the job and stores the result atomically
	// if it is a legal successor state.
	Mutate(id string, fn func(job *model.Job) error) (*model.Job, error)
	List() []*model.Job
	Delete(id string) bool
}

// JobEvictor removes finished jobs from a registry.
type JobEvictor interface {
	// EvictFinished removes terminal jobs finished before cutoff and, when keep > 0,
	// the oldest terminal jobs beyond keep. Returns the removed jobs.
	EvictFinished(cutoff time.Time, keep int) []*model.Job
	// EvictExpired removes jobs in the given terminal status finished before cutoff.
	EvictExpired(status model.JobStatus, cutoff time.Time) []*model.Job
}

// ArtifactSink manages where downloads land and how they are read back.
type ArtifactSink interface {
	ReserveName(platform model.PlatformKind, desc model.ArtifactDescriptor) (model.Target, error)
	Exists(path string) bool
	Contains(path string) bool
	Open(path string) (io.ReadSeekCloser, int64, error)
	Remove(path string) error
}

// Clock provides the current time and can be replaced in tests.
type Clock interface {
	Now() time.Time
}
