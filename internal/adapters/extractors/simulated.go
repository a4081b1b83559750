package extractors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
)

var simulatedSteps = []int{10, 25, 50, 75, 90}

// Simulated is a network-free extractor used for demos and smoke tests.
type Simulated struct {
	kind      model.PlatformKind
	stepDelay time.Duration
}

var _ core.Extractor = (*Simulated)(nil)

// NewSimulated returns a simulated extractor for kind that pauses stepDelay between progress reports.
func NewSimulated(kind model.PlatformKind, stepDelay time.Duration) *Simulated {
	return &Simulated{kind: kind, stepDelay: stepDelay}
}

func (s *Simulated) Platform() model.PlatformKind { return s.kind }

func (s *Simulated) title() string {
	return fmt.Sprintf("Demo %s Content", s.kind.DisplayName())
}

// FetchInfo returns fixed demo metadata.
func (s *Simulated) FetchInfo(ctx context.Context, _ string) (*model.ContentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Extraction(err, "demo info lookup canceled")
	}
	return &model.ContentInfo{
		Title:       s.title(),
		Uploader:    "Demo User",
		Duration:    180,
		ViewCount:   model.Int64(1_000_000),
		LikeCount:   model.Int64(50_000),
		Description: fmt.Sprintf("Simulated %s content for demonstration.", s.kind.DisplayName()),
		IsVideo:     true,
	}, nil
}

// FetchMedia walks through the demo progress steps and writes a placeholder artifact.
func (s *Simulated) FetchMedia(
	ctx context.Context,
	req core.FetchRequest,
	progress core.ProgressFunc,
) (*model.ExtractionResult, error) {
	progress = monotonic(progress)
	for _, step := range simulatedSteps {
		if err := sleepCtx(ctx, s.stepDelay); err != nil {
			return nil, apperrors.Download(err, "demo download interrupted")
		}
		progress(step)
	}

	hint := model.NormalizeFormatHint(req.FormatHint)
	body := fmt.Sprintf("demo %s artifact for %s\n", hint, req.URL)
	if err := os.WriteFile(req.Target.Path, []byte(body), 0o644); err != nil {
		return nil, apperrors.Download(err, "write demo artifact")
	}
	progress(100)

	return &model.ExtractionResult{
		Success:  true,
		Title:    s.title(),
		Path:     req.Target.Path,
		Filename: filepath.Base(req.Target.Path),
		Size:     int64(len(body)),
		Format:   hint,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsDemoURL reports whether url should be served by the simulated extractor.
func IsDemoURL(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "demo") || strings.Contains(u, "test")
}

type demoRouter struct {
	live core.Extractor
	demo core.Extractor
}

// WithDemo routes demo URLs to a simulated extractor and everything else to live.
func WithDemo(live core.Extractor, stepDelay time.Duration) core.Extractor {
	return &demoRouter{live: live, demo: NewSimulated(live.Platform(), stepDelay)}
}

func (d *demoRouter) Platform() model.PlatformKind { return d.live.Platform() }

func (d *demoRouter) pick(url string) core.Extractor {
	if IsDemoURL(url) {
		return d.demo
	}
	return d.live
}

func (d *demoRouter) FetchInfo(ctx context.Context, url string) (*model.ContentInfo, error) {
	return d.pick(url).FetchInfo(ctx, url)
}

func (d *demoRouter) FetchMedia(
	ctx context.Context,
	req core.FetchRequest,
	progress core.ProgressFunc,
) (*model.ExtractionResult, error) {
	return d.pick(req.URL).FetchMedia(ctx, req, progress)
}
