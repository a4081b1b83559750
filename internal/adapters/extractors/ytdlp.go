package extractors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/target/mediafetch/internal/core"
)

// MediaTool is the primary retrieval backend shared by every platform.
type MediaTool interface {
	// Probe returns the raw metadata JSON for url without downloading.
	Probe(ctx context.Context, url string) ([]byte, error)
	// Download retrieves url into files named OutputStem.<ext>.
	Download(ctx context.Context, url string, opts DownloadOptions, progress core.ProgressFunc) (*DownloadResult, error)
}

// DownloadOptions select what MediaTool.Download produces.
type DownloadOptions struct {
	Format       string
	ExtractAudio bool
	AudioFormat  string
	RemuxVideo   string
	OutputStem   string
}

// DownloadResult is what the tool reports about a finished download.
type DownloadResult struct {
	Title    string
	Filename string
}

// YtdlpOptions configures the yt-dlp backed MediaTool.
type YtdlpOptions struct {
	Executable       string        // Optional: resolved from PATH when empty
	ProgressInterval time.Duration // Optional: defaults to 500ms
	Logger           *slog.Logger  // Optional
}

// YtdlpClient drives the yt-dlp executable.
type YtdlpClient struct {
	executable string
	interval   time.Duration
	logger     *slog.Logger
}

var _ MediaTool = (*YtdlpClient)(nil)

// NewYtdlpClient creates a yt-dlp client.
func NewYtdlpClient(opts YtdlpOptions) *YtdlpClient {
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &YtdlpClient{
		executable: opts.Executable,
		interval:   interval,
		logger:     logger.With("component", "ytdlp"),
	}
}

func (c *YtdlpClient) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if c.executable != "" {
		cmd.SetExecutable(c.executable)
	}
	return cmd.NoPlaylist().NoWarnings()
}

// Probe runs yt-dlp with --dump-single-json --skip-download.
func (c *YtdlpClient) Probe(ctx context.Context, url string) ([]byte, error) {
	res, err := c.command().DumpSingleJSON().SkipDownload().Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w", err)
	}
	if res == nil || res.Stdout == "" {
		return nil, fmt.Errorf("yt-dlp probe returned no metadata")
	}
	return []byte(res.Stdout), nil
}

// Download runs yt-dlp with the requested format and post-processing.
func (c *YtdlpClient) Download(
	ctx context.Context,
	url string,
	opts DownloadOptions,
	progress core.ProgressFunc,
) (*DownloadResult, error) {
	dl := c.command().
		ForceOverwrites().
		Output(opts.OutputStem + ".%(ext)s")

	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.ExtractAudio {
		format := opts.AudioFormat
		if format == "" {
			format = "mp3"
		}
		dl.ExtractAudio().AudioFormat(format)
	}
	if opts.RemuxVideo != "" {
		dl.RemuxVideo(opts.RemuxVideo)
	}

	var (
		mu        sync.Mutex
		seenTitle string
	)
	if progress != nil {
		dl.ProgressFunc(c.interval, func(update ytdlp.ProgressUpdate) {
			if update.Info != nil && update.Info.Title != nil {
				mu.Lock()
				if seenTitle == "" {
					seenTitle = *update.Info.Title
				}
				mu.Unlock()
			}
			if update.TotalBytes > 0 {
				progress(int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100))
			}
		})
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp download: %w", err)
	}

	mu.Lock()
	out := &DownloadResult{Title: seenTitle}
	mu.Unlock()

	if result != nil {
		info, ierr := result.GetExtractedInfo()
		if ierr != nil {
			c.logger.Debug("no extracted info in yt-dlp output", "error", ierr)
		}
		if len(info) > 0 {
			if info[0].Title != nil && *info[0].Title != "" {
				out.Title = *info[0].Title
			}
			if info[0].Filename != nil {
				out.Filename = *info[0].Filename
			}
		}
	}
	return out, nil
}
