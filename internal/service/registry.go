package service

import (
	"errors"
	"fmt"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
)

// ExtractorRegistry maps each supported platform to its extractor.
type ExtractorRegistry struct {
	byPlatform map[model.PlatformKind]core.Extractor
}

// NewExtractorRegistry registers extractors by the platform they report.
// Each platform may be registered once.
func NewExtractorRegistry(extractors ...core.Extractor) (*ExtractorRegistry, error) {
	r := &ExtractorRegistry{byPlatform: make(map[model.PlatformKind]core.Extractor, len(extractors))}
	for _, ex := range extractors {
		if ex == nil {
			return nil, errors.New("nil extractor")
		}
		kind := ex.Platform()
		if !kind.Supported() {
			return nil, fmt.Errorf("extractor reports unsupported platform %q", kind)
		}
		if _, dup := r.byPlatform[kind]; dup {
			return nil, fmt.Errorf("platform %s registered twice", kind)
		}
		r.byPlatform[kind] = ex
	}
	return r, nil
}

// Lookup returns the extractor for kind.
func (r *ExtractorRegistry) Lookup(kind model.PlatformKind) (core.Extractor, error) {
	if ex, ok := r.byPlatform[kind]; ok {
		return ex, nil
	}
	if !kind.Supported() {
		return nil, apperrors.UnsupportedPlatform("unsupported platform")
	}
	return nil, apperrors.UnsupportedPlatform(fmt.Sprintf("no extractor registered for %s", kind.DisplayName()))
}

// Platforms lists registered platforms in their canonical order.
func (r *ExtractorRegistry) Platforms() []model.PlatformKind {
	out := make([]model.PlatformKind, 0, len(r.byPlatform))
	for _, kind := range model.SupportedPlatforms() {
		if _, ok := r.byPlatform[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}
