package extractors

import (
	"regexp"
	"strings"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

var facebookImagePattern = regexp.MustCompile(`https://[^"'\s<>]*\.(?:jpg|jpeg|png|gif)`)

var facebookProfile = profile{
	kind:             model.PlatformFacebook,
	defaultTitle:     "Facebook Video",
	descriptionLimit: 300,
	pageInfo:         true,
	imagePattern:     facebookImagePattern,
	imageWhen: func(url, hint string) bool {
		return wantsImage(hint) || strings.Contains(strings.ToLower(url), "photo")
	},
}

// NewFacebook returns the Facebook extractor.
func NewFacebook(opts Options) (core.Extractor, error) {
	return buildExtractor(facebookProfile, opts)
}
