package extractors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/grafov/m3u8"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

// ErrMediaTooLarge is returned when a transfer exceeds the configured cap.
var ErrMediaTooLarge = errors.New("media exceeds size limit")

// FetcherOptions configures direct media transfers.
type FetcherOptions struct {
	Client    *http.Client // Optional: defaults to NewHTTPClient(0)
	UserAgent string       // Optional
	MaxBytes  int64        // Optional: 0 disables the cap
	Logger    *slog.Logger // Optional
}

// Fetcher streams media found by scraping straight into a reserved target.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// NewFetcher creates a media fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		client = NewHTTPClient(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		logger:    logger.With("component", "fetcher"),
	}
}

// Fetch retrieves src into a sibling of target whose extension matches what src serves.
// HLS playlists are flattened into a single .ts file.
func (f *Fetcher) Fetch(ctx context.Context, src string, target model.Target, progress core.ProgressFunc) (string, int64, error) {
	if isPlaylistURL(src) {
		dst := target.WithExt("ts")
		n, err := f.FetchHLS(ctx, src, dst, progress)
		return dst, n, err
	}
	dst := target.WithExt(extFromURL(src, target.Ext()))
	n, err := f.FetchFile(ctx, src, dst, progress)
	return dst, n, err
}

// FetchFile streams one URL into dst, reporting byte-based progress when the length is known.
func (f *Fetcher) FetchFile(ctx context.Context, src, dst string, progress core.ProgressFunc) (int64, error) {
	resp, err := f.get(ctx, src, "*/*")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	w := &progressWriter{w: out, total: resp.ContentLength, report: progress}
	n, err := f.copyLimited(w, resp.Body, 0)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close destination: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	if n == 0 {
		_ = os.Remove(dst)
		return 0, errors.New("empty media response")
	}

	f.logger.Debug("fetched media", "size", humanize.Bytes(uint64(n)))
	return n, nil
}

// FetchHLS resolves a master playlist to its highest-bandwidth variant and
// concatenates the variant's segments into dst.
func (f *Fetcher) FetchHLS(ctx context.Context, playlistURL, dst string, progress core.ProgressFunc) (int64, error) {
	media, base, err := f.mediaPlaylist(ctx, playlistURL, 0)
	if err != nil {
		return 0, err
	}
	if media.Key != nil && media.Key.Method != "" && media.Key.Method != "NONE" {
		return 0, errors.New("encrypted HLS streams are not supported")
	}

	var segments []string
	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			return 0, errors.New("encrypted HLS streams are not supported")
		}
		segments = append(segments, resolveRef(base, seg.URI))
	}
	if len(segments) == 0 {
		return 0, errors.New("playlist has no segments")
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	var total int64
	for i, segURL := range segments {
		n, err := f.appendSegment(ctx, out, segURL, total)
		total += n
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
			return 0, fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		if progress != nil {
			progress((i + 1) * 100 / len(segments))
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("close destination: %w", err)
	}

	f.logger.Debug("fetched hls stream", "segments", len(segments), "size", humanize.Bytes(uint64(total)))
	return total, nil
}

func (f *Fetcher) appendSegment(ctx context.Context, out io.Writer, segURL string, written int64) (int64, error) {
	resp, err := f.get(ctx, segURL, "*/*")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return f.copyLimited(out, resp.Body, written)
}

// mediaPlaylist follows at most one level of master playlist.
func (f *Fetcher) mediaPlaylist(ctx context.Context, playlistURL string, depth int) (*m3u8.MediaPlaylist, *url.URL, error) {
	base, err := validateFetchURL(playlistURL)
	if err != nil {
		return nil, nil, err
	}
	resp, err := f.get(ctx, playlistURL, "application/vnd.apple.mpegurl, */*")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	pl, listType, err := m3u8.DecodeFrom(io.LimitReader(resp.Body, defaultMaxPageBytes), true)
	if err != nil {
		return nil, nil, fmt.Errorf("parse playlist: %w", err)
	}

	switch listType {
	case m3u8.MEDIA:
		return pl.(*m3u8.MediaPlaylist), base, nil
	case m3u8.MASTER:
		if depth > 0 {
			return nil, nil, errors.New("nested master playlists are not supported")
		}
		master := pl.(*m3u8.MasterPlaylist)
		var best *m3u8.Variant
		for _, v := range master.Variants {
			if v == nil || v.URI == "" {
				continue
			}
			if best == nil || v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		if best == nil {
			return nil, nil, errors.New("master playlist has no variants")
		}
		return f.mediaPlaylist(ctx, resolveRef(base, best.URI), depth+1)
	default:
		return nil, nil, errors.New("unknown playlist type")
	}
}

func (f *Fetcher) get(ctx context.Context, src, accept string) (*http.Response, error) {
	req, err := newGetRequest(ctx, src, f.userAgent, accept)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// copyLimited copies src to dst, failing once written+copied would exceed maxBytes.
func (f *Fetcher) copyLimited(dst io.Writer, src io.Reader, written int64) (int64, error) {
	if f.maxBytes <= 0 {
		return io.Copy(dst, src)
	}
	remaining := f.maxBytes - written
	if remaining <= 0 {
		return 0, ErrMediaTooLarge
	}
	n, err := io.Copy(dst, io.LimitReader(src, remaining+1))
	if err != nil {
		return n, err
	}
	if n > remaining {
		return n, ErrMediaTooLarge
	}
	return n, nil
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	report  core.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.report != nil && p.total > 0 {
		p.report(int(p.written * 100 / p.total))
	}
	return n, err
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func isPlaylistURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".m3u8")
}

var knownMediaExts = map[string]bool{
	"mp4": true, "m4v": true, "mov": true, "webm": true, "mkv": true,
	"mp3": true, "m4a": true, "aac": true, "ogg": true,
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

// extFromURL picks the container from the URL path, then a format query parameter, then fallback.
func extFromURL(raw, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); knownMediaExts[ext] {
		return ext
	}
	if ext := strings.ToLower(u.Query().Get("format")); knownMediaExts[ext] {
		return ext
	}
	return fallback
}
