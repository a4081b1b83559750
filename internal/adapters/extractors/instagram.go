package extractors

import (
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

// Instagram titles come from the caption; the page fallback reads og:video
// and og:image from the public post page.
var instagramProfile = profile{
	kind:         model.PlatformInstagram,
	defaultTitle: "Instagram Post",
	captionTitle: true,
	pageInfo:     true,
	pageMedia:    true,
}

// NewInstagram returns the Instagram extractor.
func NewInstagram(opts Options) (core.Extractor, error) {
	return buildExtractor(instagramProfile, opts)
}
