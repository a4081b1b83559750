package extractors

import (
	"regexp"
	"strings"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

var twitterImagePattern = regexp.MustCompile(`https://pbs\.twimg\.com/media/[^"'\s<>]*\.(?:jpg|jpeg|png|gif)`)

var twitterProfile = profile{
	kind:             model.PlatformTwitter,
	defaultTitle:     "Twitter Post",
	descriptionLimit: 280,
	pageInfo:         true,
	imagePattern:     twitterImagePattern,
	imageURL:         largeTwitterImage,
	imageWhen: func(_, hint string) bool {
		return wantsImage(hint)
	},
}

// largeTwitterImage asks the image CDN for the large JPEG rendition.
func largeTwitterImage(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return raw + "?format=jpg&name=large"
}

// NewTwitter returns the Twitter/X extractor.
func NewTwitter(opts Options) (core.Extractor, error) {
	return buildExtractor(twitterProfile, opts)
}
