package extractors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
)

func TestNewExtractorsRequireTool(t *testing.T) {
	for _, ctor := range []func(Options) (core.Extractor, error){NewYouTube, NewInstagram, NewFacebook, NewTwitter, NewTikTok} {
		ex, err := ctor(Options{})
		require.Error(t, err)
		assert.Nil(t, ex)
	}
}

func TestFetchInfo_FromProbe(t *testing.T) {
	tool := &fakeTool{probe: func(string) ([]byte, error) {
		return []byte(`{
			"fulltitle": "Never Gonna",
			"channel": "Rick",
			"duration": 212,
			"view_count": 1500,
			"like_count": 12,
			"thumbnails": [{"url": "https://i.ytimg.com/a.jpg"}, {"url": "https://i.ytimg.com/b.jpg"}],
			"description": "` + strings.Repeat("d", 600) + `",
			"upload_date": "20091025",
			"vcodec": "avc1"
		}`), nil
	}}
	ex, err := NewYouTube(Options{Tool: tool})
	require.NoError(t, err)

	info, err := ex.FetchInfo(context.Background(), "https://youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "Never Gonna", info.Title)
	assert.Equal(t, "Rick", info.Uploader)
	assert.Equal(t, 212.0, info.Duration)
	require.NotNil(t, info.ViewCount)
	assert.Equal(t, int64(1500), *info.ViewCount)
	assert.Nil(t, info.CommentCount)
	assert.Equal(t, "https://i.ytimg.com/b.jpg", info.Thumbnail)
	assert.Equal(t, "20091025", info.UploadDate)
	assert.True(t, info.IsVideo)
	assert.Equal(t, strings.Repeat("d", 500)+"...", info.Description)
}

func TestParseMediaInfo_AudioOnly(t *testing.T) {
	info, err := parseMediaInfo([]byte(`{"title": "Podcast", "vcodec": "none", "duration": 60}`))
	require.NoError(t, err)
	assert.False(t, info.IsVideo)
	assert.Empty(t, info.Uploader)

	info, err = parseMediaInfo([]byte(`{"title": "Clip", "formats": [{"vcodec": "none"}, {"vcodec": "vp9"}]}`))
	require.NoError(t, err)
	assert.True(t, info.IsVideo)

	_, err = parseMediaInfo([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = parseMediaInfo([]byte(`not json`))
	assert.Error(t, err)
}

func TestFetchInfo_InstagramCaptionTitle(t *testing.T) {
	caption := strings.Repeat("c", 150)
	tool := &fakeTool{probe: func(string) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"title": "Post by someone", "description": %q}`, caption)), nil
	}}
	ex, err := NewInstagram(Options{Tool: tool})
	require.NoError(t, err)

	info, err := ex.FetchInfo(context.Background(), "https://instagram.com/p/abc")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("c", 100)+"...", info.Title)
	assert.Equal(t, caption, info.Description, "instagram descriptions are not truncated")
	assert.Equal(t, "Unknown", info.Uploader)
}

const twitterPage = `<!doctype html>
<html><head>
<title>fallback title</title>
<meta property="og:title" content="Alice on X: hello">
<meta property="og:description" content="%s">
<meta property="og:image" content="/media/preview.jpg">
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"SocialMediaPosting","author":{"name":"Alice"},"datePublished":"2024-01-01"}]}</script>
</head><body>
<script>window.__STATE__={"media":"https:\/\/pbs.twimg.com\/media\/ABC.jpg?name=small"}</script>
</body></html>`

func TestFetchInfo_PageFallback(t *testing.T) {
	desc := strings.Repeat("w", 300)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, twitterPage, desc)
	}))
	defer srv.Close()

	tool := &fakeTool{probe: func(string) ([]byte, error) { return nil, errors.New("login required") }}
	ex, err := NewTwitter(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	info, err := ex.FetchInfo(context.Background(), "https://x.com/alice/status/123")
	require.NoError(t, err)
	assert.Equal(t, "Alice on X: hello", info.Title)
	assert.Equal(t, "Alice", info.Uploader)
	assert.Equal(t, "2024-01-01", info.UploadDate)
	assert.Equal(t, "https://x.com/media/preview.jpg", info.Thumbnail)
	assert.Equal(t, strings.Repeat("w", 280)+"...", info.Description)
}

func TestFetchInfo_AllPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	tool := &fakeTool{probe: func(string) ([]byte, error) { return nil, errors.New("private video") }}
	ex, err := NewFacebook(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	_, err = ex.FetchInfo(context.Background(), "https://facebook.com/watch?v=1")
	require.Error(t, err)
	assert.True(t, apperrors.IsExtraction(err))
	assert.Contains(t, err.Error(), "private video")
	assert.Contains(t, err.Error(), "403")

	yt, err := NewYouTube(Options{Tool: tool})
	require.NoError(t, err)
	_, err = yt.FetchInfo(context.Background(), "https://youtu.be/x")
	assert.True(t, apperrors.IsExtraction(err))
}

func TestFetchMedia_Audio(t *testing.T) {
	target := newTarget(t, "mp3")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		func(opts DownloadOptions, progress core.ProgressFunc) (*DownloadResult, error) {
			progress(30)
			progress(20)
			progress(80)
			require.NoError(t, os.WriteFile(opts.OutputStem+".mp3", []byte("ID3audio"), 0o600))
			return &DownloadResult{Title: "Song"}, nil
		},
	}}
	ex, err := NewYouTube(Options{Tool: tool})
	require.NoError(t, err)

	var log progressLog
	res, err := ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://youtube.com/watch?v=abc", FormatHint: "audio", Target: target,
	}, log.fn)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 80, 100}, log.get())
	assert.Equal(t, target.Path, res.Path)
	assert.Equal(t, filepath.Base(target.Path), res.Filename)
	assert.Equal(t, int64(8), res.Size)
	assert.Equal(t, model.FormatAudio, res.Format)
	assert.Equal(t, "Song", res.Title)
	assert.True(t, res.Success)

	require.Len(t, tool.calls, 1)
	assert.True(t, tool.calls[0].ExtractAudio)
	assert.Equal(t, "bestaudio/best", tool.calls[0].Format)
	assert.Equal(t, target.Stem(), tool.calls[0].OutputStem)
}

func TestFetchMedia_ToolReportedFilename(t *testing.T) {
	target := newTarget(t, "mp4")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		func(opts DownloadOptions, _ core.ProgressFunc) (*DownloadResult, error) {
			name := opts.OutputStem + ".webm"
			require.NoError(t, os.WriteFile(name, []byte("webm"), 0o600))
			return &DownloadResult{Filename: name}, nil
		},
	}}
	ex, err := NewYouTube(Options{Tool: tool})
	require.NoError(t, err)

	res, err := ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://youtube.com/watch?v=abc", FormatHint: "best", Target: target,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, target.WithExt("webm"), res.Path)
	assert.Equal(t, "YouTube Video", res.Title)
}

func TestFetchMedia_TikTokNoWatermark(t *testing.T) {
	req := func(target model.Target) core.FetchRequest {
		return core.FetchRequest{URL: "https://tiktok.com/@u/video/1", FormatHint: "video_no_watermark", Target: target}
	}

	t.Run("primary succeeds", func(t *testing.T) {
		target := newTarget(t, "mp4")
		tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
			writeOutput("mp4", "clean"),
		}}
		ex, err := NewTikTok(Options{Tool: tool})
		require.NoError(t, err)

		res, err := ex.FetchMedia(context.Background(), req(target), nil)
		require.NoError(t, err)
		assert.Equal(t, "Clip (No Watermark)", res.Title)
		assert.Equal(t, model.FormatVideoNoWatermark, res.Format)
	})

	t.Run("falls back to best", func(t *testing.T) {
		target := newTarget(t, "mp4")
		tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
			failDownload("no clean rendition"),
			writeOutput("mp4", "marked"),
		}}
		ex, err := NewTikTok(Options{Tool: tool})
		require.NoError(t, err)

		res, err := ex.FetchMedia(context.Background(), req(target), nil)
		require.NoError(t, err)
		assert.Equal(t, "Clip", res.Title)
		assert.Equal(t, model.FormatBest, res.Format)
		require.Len(t, tool.calls, 2)
		assert.Equal(t, "best", tool.calls[1].Format)
	})
}

func TestFetchMedia_TwitterImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alice/status/123":
			fmt.Fprintf(w, twitterPage, "hello")
		case "/media/ABC.jpg":
			if r.URL.Query().Get("name") != "large" || r.URL.Query().Get("format") != "jpg" {
				http.Error(w, "wrong rendition", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte("\xff\xd8jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	target := newTarget(t, "jpg")
	tool := &fakeTool{}
	ex, err := NewTwitter(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	var log progressLog
	res, err := ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://x.com/alice/status/123", FormatHint: "image", Target: target,
	}, log.fn)
	require.NoError(t, err)

	assert.Equal(t, model.FormatImage, res.Format)
	assert.Equal(t, "Alice on X: hello", res.Title)
	assert.Equal(t, target.Path, res.Path)
	assert.Empty(t, tool.calls, "image scrape runs before yt-dlp")

	values := log.get()
	assertIncreasing(t, values)
	assert.Equal(t, 20, values[0])
	assert.Equal(t, 100, values[len(values)-1])

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8jpeg-bytes", string(data))
}

func TestFetchMedia_FacebookPhotoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.php":
			_, _ = w.Write([]byte(`<html><body><img src="https://scontent.example.net/v/p123.png"></body></html>`))
		case "/v/p123.png":
			_, _ = w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	target := newTarget(t, "mp4")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		func(opts DownloadOptions, _ core.ProgressFunc) (*DownloadResult, error) {
			require.NoError(t, os.WriteFile(opts.OutputStem+".mp4.part", []byte("partial"), 0o600))
			return nil, errors.New("no video formats found")
		},
	}}
	ex, err := NewFacebook(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	res, err := ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://facebook.com/photo.php?fbid=42", FormatHint: "best", Target: target,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, target.WithExt("png"), res.Path)
	assert.Equal(t, model.FormatImage, res.Format)
	assert.Equal(t, int64(len("png-bytes")), res.Size)
	assert.NoFileExists(t, target.Stem()+".mp4.part")
}

func TestFetchMedia_InstagramPageMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/p/abc/":
			_, _ = w.Write([]byte(`<html><head>
<meta property="og:title" content="Sunset reel">
<meta property="og:video" content="https://cdn.example.net/v/reel.mp4?efg=1">
</head></html>`))
		case "/v/reel.mp4":
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	target := newTarget(t, "mp4")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		failDownload("login required"),
	}}
	ex, err := NewInstagram(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	res, err := ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://instagram.com/p/abc/", FormatHint: "video", Target: target,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, target.Path, res.Path)
	assert.Equal(t, "Sunset reel", res.Title)
	assert.Equal(t, model.FormatVideo, res.Format)
}

func TestFetchMedia_AllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>nothing here</title></head></html>`))
	}))
	defer srv.Close()

	target := newTarget(t, "mp4")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		func(opts DownloadOptions, _ core.ProgressFunc) (*DownloadResult, error) {
			require.NoError(t, os.WriteFile(opts.OutputStem+".f137.mp4", []byte("frag"), 0o600))
			return nil, errors.New("HTTP Error 403: Forbidden")
		},
	}}
	ex, err := NewInstagram(scrapingOptions(t, tool, srv))
	require.NoError(t, err)

	_, err = ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://instagram.com/p/zzz/", FormatHint: "best", Target: target,
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsDownload(err))
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "page advertises no media")

	entries, err := os.ReadDir(filepath.Dir(target.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the reserved placeholder remains")
	assert.Equal(t, filepath.Base(target.Path), entries[0].Name())
}

func TestFetchMedia_AudioSkipsPageFallbacks(t *testing.T) {
	target := newTarget(t, "mp3")
	tool := &fakeTool{downloads: []func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error){
		failDownload("boom"),
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected page request %s", r.URL)
	}))
	defer srv.Close()

	ex, err := NewInstagram(scrapingOptions(t, tool, srv))
	require.NoError(t, err)
	_, err = ex.FetchMedia(context.Background(), core.FetchRequest{
		URL: "https://instagram.com/p/abc/", FormatHint: "audio", Target: target,
	}, nil)
	assert.True(t, apperrors.IsDownload(err))
}

func TestFetchMedia_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tool := &fakeTool{}
	ex, err := NewYouTube(Options{Tool: tool})
	require.NoError(t, err)

	_, err = ex.FetchMedia(ctx, core.FetchRequest{
		URL: "https://youtu.be/x", FormatHint: "best", Target: newTarget(t, "mp4"),
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tool.calls)
}

func TestMonotonic(t *testing.T) {
	var log progressLog
	fn := monotonic(log.fn)
	for _, v := range []int{-5, 0, 10, 10, 5, 50, 120, 100} {
		fn(v)
	}
	assert.Equal(t, []int{0, 10, 50, 100}, log.get())

	monotonic(nil)(10)
}
