package extractors

import (
	"time"

	"github.com/target/mediafetch/internal/core"
)

// BuildOptions configures the full extractor set.
type BuildOptions struct {
	Options
	// DemoMode wraps every extractor with WithDemo.
	DemoMode      bool
	DemoStepDelay time.Duration
}

// All constructs one extractor per supported platform.
func All(opts BuildOptions) ([]core.Extractor, error) {
	ctors := []func(Options) (core.Extractor, error){
		NewYouTube,
		NewInstagram,
		NewFacebook,
		NewTwitter,
		NewTikTok,
	}

	out := make([]core.Extractor, 0, len(ctors))
	for _, ctor := range ctors {
		ex, err := ctor(opts.Options)
		if err != nil {
			return nil, err
		}
		if opts.DemoMode {
			ex = WithDemo(ex, opts.DemoStepDelay)
		}
		out = append(out, ex)
	}
	return out, nil
}
