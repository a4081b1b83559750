package extractors

import (
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

var youtubeProfile = profile{
	kind:             model.PlatformYouTube,
	defaultTitle:     "YouTube Video",
	descriptionLimit: 500,
}

// NewYouTube returns the YouTube extractor. yt-dlp covers every YouTube URL shape.
func NewYouTube(opts Options) (core.Extractor, error) {
	return buildExtractor(youtubeProfile, opts)
}
