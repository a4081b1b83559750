// Package extractors implements the per-platform media extraction strategies.
//
// Every platform shares platformExtractor: yt-dlp is the primary strategy and
// page scraping supplies the fallbacks a platform profile enables. Each
// strategy writes only to the reserved target (or a sibling sharing its stem)
// and its leftovers are removed before the next strategy runs.
package extractors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/domain/platform"
	apperrors "github.com/target/mediafetch/internal/errors"
)

// Options groups the backends shared by every platform extractor.
type Options struct {
	Tool    MediaTool    // Required
	Scraper *Scraper     // Optional: nil disables page fallbacks
	Fetcher *Fetcher     // Optional: nil disables direct media fallbacks
	Logger  *slog.Logger // Optional
}

// profile captures everything that differs between platforms.
type profile struct {
	kind             model.PlatformKind
	defaultTitle     string
	descriptionLimit int
	// captionTitle uses the first captionTitleLimit runes of the description as the title.
	captionTitle bool
	// pageInfo falls back to Open Graph and JSON-LD when the probe fails.
	pageInfo bool
	// pageMedia falls back to og:video / og:image after yt-dlp fails.
	pageMedia bool
	// imagePattern finds a still image in the page text.
	imagePattern *regexp.Regexp
	// imageURL rewrites a matched image URL before fetching.
	imageURL func(string) string
	// imageWhen decides whether the image scrape applies for a non-image hint.
	imageWhen func(url, hint string) bool
}

const captionTitleLimit = 100

func (p profile) supportsImages() bool {
	return p.imagePattern != nil || p.pageMedia
}

type platformExtractor struct {
	profile profile
	tool    MediaTool
	scraper *Scraper
	fetcher *Fetcher
	logger  *slog.Logger
}

var _ core.Extractor = (*platformExtractor)(nil)

func newPlatformExtractor(p profile, opts Options) (*platformExtractor, error) {
	if opts.Tool == nil {
		return nil, errors.New("media tool is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &platformExtractor{
		profile: p,
		tool:    opts.Tool,
		scraper: opts.Scraper,
		fetcher: opts.Fetcher,
		logger:  logger.With("component", "extractor", "platform", p.kind.String()),
	}, nil
}

func buildExtractor(p profile, opts Options) (core.Extractor, error) {
	ex, err := newPlatformExtractor(p, opts)
	if err != nil {
		return nil, fmt.Errorf("%s extractor: %w", p.kind, err)
	}
	return ex, nil
}

func (e *platformExtractor) Platform() model.PlatformKind { return e.profile.kind }

// FetchInfo probes metadata with yt-dlp, falling back to the public page when enabled.
func (e *platformExtractor) FetchInfo(ctx context.Context, url string) (*model.ContentInfo, error) {
	raw, err := e.tool.Probe(ctx, url)
	if err == nil {
		info, perr := parseMediaInfo(raw)
		if perr == nil {
			return e.finishInfo(info), nil
		}
		err = perr
	}

	if ctx.Err() == nil && e.profile.pageInfo && e.scraper != nil {
		pg, serr := e.scraper.Fetch(ctx, url)
		if serr == nil {
			if info := pg.info(); info.Title != "" || info.MediaURL != "" {
				e.logger.Debug("info served from page metadata", "probe_error", err)
				return e.finishInfo(info), nil
			}
			serr = errors.New("page carries no usable metadata")
		}
		err = errors.Join(err, fmt.Errorf("page fallback: %w", serr))
	}

	return nil, apperrors.Extraction(err, fmt.Sprintf("%s info lookup failed", e.profile.kind.DisplayName()))
}

func (e *platformExtractor) finishInfo(info *model.ContentInfo) *model.ContentInfo {
	p := e.profile
	if p.captionTitle && info.Description != "" {
		info.Title = truncate(info.Description, captionTitleLimit)
	}
	if info.Title == "" {
		info.Title = p.defaultTitle
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	info.Description = truncate(info.Description, p.descriptionLimit)
	return info
}

// strategy is one attempt in an extractor's fallback chain.
type strategy struct {
	name string
	run  func(ctx context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error)
}

// FetchMedia runs the platform's chain until one strategy produces an artifact.
func (e *platformExtractor) FetchMedia(
	ctx context.Context,
	req core.FetchRequest,
	progress core.ProgressFunc,
) (*model.ExtractionResult, error) {
	progress = monotonic(progress)
	chain := e.chain(req)

	var errs []error
	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.run(ctx, req, progress)
		if err == nil {
			progress(100)
			return res, nil
		}
		e.logger.Warn("strategy failed", "strategy", s.name, "url", req.URL, "error", err)
		removeLeftovers(req.Target)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}

	return nil, apperrors.Download(errors.Join(errs...), fmt.Sprintf("%s download failed", e.profile.kind.DisplayName()))
}

func (e *platformExtractor) chain(req core.FetchRequest) []strategy {
	p := e.profile
	plan := resolveFormat(p.kind, req.FormatHint)

	canScrape := e.scraper != nil && e.fetcher != nil
	imageStrategy := func() []strategy {
		if !canScrape {
			return nil
		}
		if p.imagePattern != nil {
			return []strategy{{name: "image-scrape", run: e.runImageScrape}}
		}
		if p.pageMedia {
			return []strategy{{name: "page-image", run: e.runPageMedia(true)}}
		}
		return nil
	}

	if plan.Image {
		chain := imageStrategy()
		// yt-dlp cannot produce a still; fall back to the best media instead.
		return append(chain, strategy{name: "ytdlp", run: e.runYtdlp(bestPlan())})
	}

	var chain []strategy
	if plan.TitleSuffix != "" {
		chain = append(chain,
			strategy{name: "ytdlp-no-watermark", run: e.runYtdlp(plan)},
			strategy{name: "ytdlp", run: e.runYtdlp(bestPlan())},
		)
	} else {
		chain = append(chain, strategy{name: "ytdlp", run: e.runYtdlp(plan)})
	}

	if !canScrape || plan.ExtractAudio {
		return chain
	}
	if p.pageMedia {
		chain = append(chain, strategy{name: "page-media", run: e.runPageMedia(false)})
	}
	if p.imagePattern != nil && p.imageWhen != nil && p.imageWhen(req.URL, req.FormatHint) {
		chain = append(chain, strategy{name: "image-scrape", run: e.runImageScrape})
	}
	return chain
}

func (e *platformExtractor) runYtdlp(plan formatPlan) func(context.Context, core.FetchRequest, core.ProgressFunc) (*model.ExtractionResult, error) {
	return func(ctx context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
		out, err := e.tool.Download(ctx, req.URL, DownloadOptions{
			Format:       plan.Selector,
			ExtractAudio: plan.ExtractAudio,
			AudioFormat:  "mp3",
			RemuxVideo:   plan.Remux,
			OutputStem:   req.Target.Stem(),
		}, progress)
		if err != nil {
			return nil, err
		}

		path := req.Target.WithExt(plan.Ext)
		size, ok := nonEmptyFile(path)
		if !ok && out != nil && out.Filename != "" && sameStem(req.Target, out.Filename) {
			path = out.Filename
			size, ok = nonEmptyFile(path)
		}
		if !ok {
			return nil, errors.New("no output file was produced")
		}

		title := e.profile.defaultTitle
		if out != nil && out.Title != "" {
			title = out.Title
		}
		return &model.ExtractionResult{
			Success:  true,
			Title:    title + plan.TitleSuffix,
			Path:     path,
			Filename: filepath.Base(path),
			Size:     size,
			Format:   plan.ResultFormat,
		}, nil
	}
}

func (e *platformExtractor) runImageScrape(ctx context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
	pg, err := e.scraper.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	progress(20)

	imgURL := pg.find(e.profile.imagePattern)
	if imgURL == "" {
		return nil, errors.New("no images found on page")
	}
	if e.profile.imageURL != nil {
		imgURL = e.profile.imageURL(imgURL)
	}

	return e.fetchInto(ctx, req, imgURL, e.imageTitle(pg, req.URL), model.FormatImage, progress)
}

func (e *platformExtractor) runPageMedia(imageOnly bool) func(context.Context, core.FetchRequest, core.ProgressFunc) (*model.ExtractionResult, error) {
	return func(ctx context.Context, req core.FetchRequest, progress core.ProgressFunc) (*model.ExtractionResult, error) {
		pg, err := e.scraper.Fetch(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		progress(20)

		if !imageOnly {
			if video := pg.videoURL(); video != "" {
				title := pg.info().Title
				if title == "" {
					title = e.profile.defaultTitle
				}
				return e.fetchInto(ctx, req, video, title, resolveFormat(e.profile.kind, req.FormatHint).ResultFormat, progress)
			}
		}
		if img := pg.imageURL(); img != "" {
			return e.fetchInto(ctx, req, img, e.imageTitle(pg, req.URL), model.FormatImage, progress)
		}
		return nil, errors.New("page advertises no media")
	}
}

func (e *platformExtractor) fetchInto(
	ctx context.Context,
	req core.FetchRequest,
	src, title, format string,
	progress core.ProgressFunc,
) (*model.ExtractionResult, error) {
	path, size, err := e.fetcher.Fetch(ctx, src, req.Target, progress)
	if err != nil {
		return nil, err
	}
	return &model.ExtractionResult{
		Success:  true,
		Title:    title,
		Path:     path,
		Filename: filepath.Base(path),
		Size:     size,
		Format:   format,
	}, nil
}

func (e *platformExtractor) imageTitle(pg *page, url string) string {
	if t := pg.meta("og:title", "twitter:title"); t != "" {
		return t
	}
	if id := platform.ContentID(e.profile.kind, url); id != "" {
		return fmt.Sprintf("%s Image %s", e.profile.kind.DisplayName(), id)
	}
	return e.profile.kind.DisplayName() + " Image"
}

// monotonic wraps fn so it only ever sees strictly increasing values in [0,100].
func monotonic(fn core.ProgressFunc) core.ProgressFunc {
	if fn == nil {
		return func(int) {}
	}
	var mu sync.Mutex
	last := -1
	return func(p int) {
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		mu.Lock()
		defer mu.Unlock()
		if p <= last {
			return
		}
		last = p
		fn(p)
	}
}

func nonEmptyFile(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return 0, false
	}
	return info.Size(), true
}

func sameStem(target model.Target, path string) bool {
	return filepath.Dir(path) == filepath.Dir(target.Path) &&
		strings.HasPrefix(filepath.Base(path), filepath.Base(target.Stem())+".")
}

// removeLeftovers deletes siblings a failed strategy left next to the target
// and empties the reserved placeholder itself.
func removeLeftovers(target model.Target) {
	dir := filepath.Dir(target.Path)
	prefix := filepath.Base(target.Stem()) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		full := filepath.Join(dir, name)
		if full == target.Path {
			_ = os.Truncate(full, 0)
			continue
		}
		_ = os.RemoveAll(full)
	}
}
