package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/adapters/artifacts"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/data"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
	"github.com/target/mediafetch/internal/mocks"
	"github.com/target/mediafetch/internal/observability/statsd"
	"github.com/target/mediafetch/internal/testutil"
)

const youtubeURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fixture struct {
	svc  *DownloadService
	reg  *data.JobRegistry
	sink *artifacts.FSSink
	rec  *statsd.Recorder
	ex   *mocks.MockExtractor
}

func newFixture(t *testing.T, cfg config.OrchestratorConfig, cache *InfoCacheService) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().Platform().Return(model.PlatformYouTube).AnyTimes()

	extractors, err := NewExtractorRegistry(ex)
	require.NoError(t, err)

	sink, err := artifacts.NewFSSink(artifacts.FSSinkOptions{Root: testutil.StorageRoot(t)})
	require.NoError(t, err)

	reg := data.NewJobRegistry()
	rec := &statsd.Recorder{}
	svc, err := NewDownloadService(DownloadServiceOptions{
		Registry:   reg,
		Extractors: extractors,
		Sink:       sink,
		Config:     cfg,
		InfoCache:  cache,
		Metrics:    rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &fixture{svc: svc, reg: reg, sink: sink, rec: rec, ex: ex}
}

func waitForStatus(t *testing.T, svc *DownloadService, id string, want model.JobStatus) *model.Job {
	t.Helper()
	var last *model.Job
	require.Eventually(t, func() bool {
		job, err := svc.GetStatus(context.Background(), id)
		require.NoError(t, err)
		last = job
		return job.Status == want
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return last
}

// writeResult lands content at path the way a real extractor would.
func writeResult(t *testing.T, path, content, format string) *model.ExtractionResult {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &model.ExtractionResult{
		Success:  true,
		Title:    "Never Gonna Give You Up",
		Path:     path,
		Filename: filepath.Base(path),
		Size:     int64(len(content)),
		Format:   format,
	}
}

func TestNewDownloadService_Validation(t *testing.T) {
	_, err := NewDownloadService(DownloadServiceOptions{})
	assert.Error(t, err)

	_, err = NewDownloadService(DownloadServiceOptions{Registry: data.NewJobRegistry()})
	assert.Error(t, err)
}

func TestSubmitDownload_EmptyURL(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	for _, url := range []string{"", "   \t"} {
		id, err := f.svc.SubmitDownload(context.Background(), url, "best")
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidRequest(err))
		assert.Equal(t, "url", apperrors.GetField(err))
		assert.Empty(t, id)
	}
	assert.Equal(t, 0, f.reg.Len())
}

func TestSubmitDownload_UnsupportedPlatform(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	id, err := f.svc.SubmitDownload(context.Background(), "https://myspace.com/clip/1", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := f.svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "unsupported platform", job.ErrorDetail)
	assert.Equal(t, model.PlatformUnknown, job.Platform)
	assert.Equal(t, model.FormatBest, job.FormatHint)
}

func TestSubmitDownload_PlatformWithoutExtractor(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	id, err := f.svc.SubmitDownload(context.Background(), "https://www.tiktok.com/@u/video/1", "best")
	require.NoError(t, err)

	job, err := f.svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorDetail, "no extractor registered for TikTok")
}

func TestDownload_AudioScenario(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	reported := make(chan struct{})
	release := make(chan struct{})
	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
			assert.Equal(t, youtubeURL, req.URL)
			assert.Equal(t, model.FormatAudio, req.FormatHint)
			assert.Equal(t, "mp3", req.Target.Ext())
			assert.Contains(t, filepath.Base(req.Target.Path), "youtube_dQw4w9WgXcQ_")

			progress(10)
			progress(40)
			progress(30)
			close(reported)
			<-release
			progress(100)
			return writeResult(t, req.Target.Path, "ID3 audio bytes", model.FormatAudio), nil
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, " AUDIO ")
	require.NoError(t, err)

	<-reported
	running := waitForStatus(t, f.svc, id, model.JobStatusRunning)
	assert.Equal(t, 40, running.ProgressPercent)
	assert.NotNil(t, running.StartedAt)

	_, err = f.svc.FetchArtifact(context.Background(), id)
	assert.True(t, apperrors.IsNotReady(err))

	close(release)
	job := waitForStatus(t, f.svc, id, model.JobStatusCompleted)
	assert.Equal(t, 100, job.ProgressPercent)
	require.NotNil(t, job.Result)
	assert.Equal(t, model.FormatAudio, job.Result.Format)
	assert.True(t, strings.HasSuffix(job.Result.Filename, ".mp3"))
	assert.Empty(t, job.ErrorDetail)
	assert.NotNil(t, job.FinishedAt)

	art, err := f.svc.FetchArtifact(context.Background(), id)
	require.NoError(t, err)
	defer art.Content.Close()
	assert.Equal(t, job.Result.Filename, art.Filename)
	assert.Equal(t, int64(len("ID3 audio bytes")), art.Size)
	body, err := io.ReadAll(art.Content)
	require.NoError(t, err)
	assert.Equal(t, "ID3 audio bytes", string(body))

	assert.Equal(t, 1.0, f.rec.Total("job.transition", map[string]string{"transition": "completed", "platform": "youtube"}))
}

func TestDownload_FinalizingBeforeCompleted(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	finished := make(chan struct{})
	release := make(chan struct{})
	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
			res := writeResult(t, req.Target.Path, "video", model.FormatBest)
			progress(100)
			close(finished)
			<-release
			return res, nil
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "")
	require.NoError(t, err)

	<-finished
	job := waitForStatus(t, f.svc, id, model.JobStatusFinalizing)
	assert.Equal(t, 99, job.ProgressPercent)
	assert.Nil(t, job.Result)

	close(release)
	job = waitForStatus(t, f.svc, id, model.JobStatusCompleted)
	assert.Equal(t, 100, job.ProgressPercent)
}

func TestDownload_FallbackContainerRemovesPlaceholder(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	var placeholder string
	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, _ core.ProgressFunc) (*model.ExtractionResult, error) {
			placeholder = req.Target.Path
			return writeResult(t, req.Target.WithExt("webm"), "webm", model.FormatBest), nil
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)

	job := waitForStatus(t, f.svc, id, model.JobStatusCompleted)
	assert.True(t, strings.HasSuffix(job.Result.Filename, ".webm"))
	assert.NoFileExists(t, placeholder)
}

func TestDownload_ExtractorFailure(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
			progress(35)
			return nil, apperrors.Download(errors.New("HTTP Error 403: Forbidden"), "YouTube download failed")
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "video")
	require.NoError(t, err)

	job := waitForStatus(t, f.svc, id, model.JobStatusFailed)
	assert.Equal(t, "YouTube download failed: HTTP Error 403: Forbidden", job.ErrorDetail)
	assert.Nil(t, job.Result)
	assert.Equal(t, 35, job.ProgressPercent)

	entries, err := os.ReadDir(f.sink.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "placeholder is removed on failure")

	assert.Equal(t, 1.0, f.rec.Total("job.transition", map[string]string{"transition": "failed", "error_class": "download"}))
}

func TestDownload_ExtractorPanic(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, core.FetchRequest, core.ProgressFunc) (*model.ExtractionResult, error) {
			panic("nil map write")
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)

	job := waitForStatus(t, f.svc, id, model.JobStatusFailed)
	assert.Equal(t, "extractor panicked: nil map write", job.ErrorDetail)
}

func TestDownload_Timeout(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{JobTimeout: time.Second}, nil)

	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ core.FetchRequest, _ core.ProgressFunc) (*model.ExtractionResult, error) {
			<-ctx.Done()
			return nil, apperrors.Download(ctx.Err(), "YouTube download failed")
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)

	job := waitForStatus(t, f.svc, id, model.JobStatusFailed)
	assert.Equal(t, "download timed out after 1s", job.ErrorDetail)
}

func TestDownload_ResultVerification(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, config.OrchestratorConfig{}, nil)
		f.ex.EXPECT().
			FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req core.FetchRequest, _ core.ProgressFunc) (*model.ExtractionResult, error) {
				path := req.Target.WithExt("mkv")
				return &model.ExtractionResult{Success: true, Path: path, Filename: filepath.Base(path), Size: 10}, nil
			})

		id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
		require.NoError(t, err)
		job := waitForStatus(t, f.svc, id, model.JobStatusFailed)
		assert.Equal(t, "artifact missing after download", job.ErrorDetail)
	})

	t.Run("outside storage root", func(t *testing.T) {
		f := newFixture(t, config.OrchestratorConfig{}, nil)
		outside := filepath.Join(t.TempDir(), "escaped.mp4")
		f.ex.EXPECT().
			FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, core.FetchRequest, core.ProgressFunc) (*model.ExtractionResult, error) {
				return writeResult(t, outside, "x", model.FormatBest), nil
			})

		id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
		require.NoError(t, err)
		job := waitForStatus(t, f.svc, id, model.JobStatusFailed)
		assert.Contains(t, job.ErrorDetail, "outside the storage root")
		assert.FileExists(t, outside, "files outside the root are never touched")
	})
}

func TestFetchArtifact_Errors(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	_, err := f.svc.FetchArtifact(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, _ core.ProgressFunc) (*model.ExtractionResult, error) {
			return writeResult(t, req.Target.Path, "video", model.FormatBest), nil
		})
	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)
	job := waitForStatus(t, f.svc, id, model.JobStatusCompleted)

	require.NoError(t, f.sink.Remove(job.Result.Path))
	_, err = f.svc.FetchArtifact(context.Background(), id)
	assert.True(t, apperrors.IsMissingArtifact(err))

	failed, err := f.svc.SubmitDownload(context.Background(), "https://example.com/x", "best")
	require.NoError(t, err)
	_, err = f.svc.FetchArtifact(context.Background(), failed)
	assert.True(t, apperrors.IsNotReady(err))
}

func TestCancelJob(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	started := make(chan struct{})
	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
			progress(20)
			close(started)
			<-ctx.Done()
			// A late report after cancellation must not resurrect the job.
			progress(60)
			return nil, apperrors.Download(context.Cause(ctx), "YouTube download failed")
		})

	id, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)
	<-started

	require.NoError(t, f.svc.CancelJob(context.Background(), id))
	job, err := f.svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "download canceled", job.ErrorDetail)
	assert.Equal(t, 20, job.ProgressPercent)

	err = f.svc.CancelJob(context.Background(), id)
	assert.True(t, apperrors.IsConflict(err))

	err = f.svc.CancelJob(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(f.sink.Root())
		return len(entries) == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, f.rec.Total("job.transition", map[string]string{"transition": "canceled"}))
}

func TestBackpressureAndShutdown(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{MaxConcurrentJobs: 1, MaxQueuedJobs: 1}, nil)

	started := make(chan struct{})
	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ core.FetchRequest, _ core.ProgressFunc) (*model.ExtractionResult, error) {
			close(started)
			<-ctx.Done()
			return nil, apperrors.Download(ctx.Err(), "YouTube download failed")
		})

	first, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)
	<-started
	waitForStatus(t, f.svc, first, model.JobStatusRunning)

	second, err := f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.NoError(t, err)

	_, err = f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacity(err))
	assert.Len(t, f.svc.ListJobs(context.Background()), 2, "rejected submissions create no job")

	stats := f.svc.Stats()
	assert.Equal(t, 1, stats.ActiveTasks)
	assert.Equal(t, 1, stats.WaitingTasks)
	assert.Equal(t, 1, stats.Running)
	assert.Equal(t, 1, stats.Queued)
	assert.Equal(t, 2, stats.Total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	for _, id := range []string{first, second} {
		job, err := f.svc.GetStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, job.Status, id)
		assert.Equal(t, "download canceled", job.ErrorDetail, id)
	}

	_, err = f.svc.SubmitDownload(context.Background(), youtubeURL, "best")
	assert.True(t, apperrors.IsCapacity(err))
}

func TestConcurrentSubmissionsAreIsolated(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{MaxConcurrentJobs: 8, MaxQueuedJobs: 0}, nil)

	f.ex.EXPECT().
		FetchMedia(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
			for p := 10; p <= 90; p += 20 {
				progress(p)
			}
			return writeResult(t, req.Target.Path, req.URL, model.FormatBest), nil
		}).
		Times(24)

	var (
		mu  sync.Mutex
		ids []string
		wg  sync.WaitGroup
	)
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := f.svc.SubmitDownload(context.Background(), fmt.Sprintf("%s&n=%d", youtubeURL, i), "best")
			assert.NoError(t, err)
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	seenIDs := map[string]bool{}
	seenPaths := map[string]bool{}
	for _, id := range ids {
		require.False(t, seenIDs[id], "duplicate id %s", id)
		seenIDs[id] = true

		job := waitForStatus(t, f.svc, id, model.JobStatusCompleted)
		require.False(t, seenPaths[job.Result.Path], "duplicate path %s", job.Result.Path)
		seenPaths[job.Result.Path] = true

		data, err := os.ReadFile(job.Result.Path)
		require.NoError(t, err)
		assert.Equal(t, job.URL, string(data), "each job owns its artifact")
	}
}

func TestListJobsAndStats(t *testing.T) {
	f := newFixture(t, config.OrchestratorConfig{}, nil)

	a, err := f.svc.SubmitDownload(context.Background(), "https://unknown.example/a", "best")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := f.svc.SubmitDownload(context.Background(), "https://unknown.example/b", "best")
	require.NoError(t, err)

	jobs := f.svc.ListJobs(context.Background())
	require.Len(t, jobs, 2)
	assert.Equal(t, b, jobs[0].ID)
	assert.Equal(t, a, jobs[1].ID)

	stats := f.svc.Stats()
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 0, stats.ActiveTasks)
}
