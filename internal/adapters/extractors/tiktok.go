package extractors

import (
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

// TikTok honours video_no_watermark: an mp4-preferring attempt first, then plain best.
var tiktokProfile = profile{
	kind:             model.PlatformTikTok,
	defaultTitle:     "TikTok Video",
	descriptionLimit: 200,
	pageInfo:         true,
}

// NewTikTok returns the TikTok extractor.
func NewTikTok(opts Options) (core.Extractor, error) {
	return buildExtractor(tiktokProfile, opts)
}
