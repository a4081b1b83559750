// Package platform maps content URLs to the platform that hosts them.
package platform

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/target/mediafetch/internal/domain/model"
)

type hostRule struct {
	kind  model.PlatformKind
	hosts []string
}

// rules are evaluated in order; the first match wins.
var rules = []hostRule{
	{kind: model.PlatformYouTube, hosts: []string{"youtube.com", "youtu.be"}},
	{kind: model.PlatformInstagram, hosts: []string{"instagram.com"}},
	{kind: model.PlatformFacebook, hosts: []string{"facebook.com", "fb.watch"}},
	{kind: model.PlatformTwitter, hosts: []string{"twitter.com", "x.com"}},
	{kind: model.PlatformTikTok, hosts: []string{"tiktok.com"}},
}

// Classify returns the platform hosting rawURL. It never fails: anything it
// cannot recognise, including unparseable input, is PlatformUnknown.
func Classify(rawURL string) model.PlatformKind {
	host := Host(rawURL)
	if host == "" {
		return model.PlatformUnknown
	}
	for _, rule := range rules {
		for _, h := range rule.hosts {
			if strings.Contains(host, h) {
				return rule.kind
			}
		}
	}
	return model.PlatformUnknown
}

// Host extracts the lowercased host of rawURL without port. A missing scheme
// is tolerated. Returns "" when no host can be found.
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := u.Host
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

var idPatterns = map[model.PlatformKind][]*regexp.Regexp{
	model.PlatformYouTube: {
		regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
		regexp.MustCompile(`/(?:shorts|embed|live)/([A-Za-z0-9_-]{6,})`),
	},
	model.PlatformInstagram: {
		regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([^/?#]+)`),
	},
	model.PlatformFacebook: {
		regexp.MustCompile(`[?&](?:v|fbid)=(\d+)`),
		regexp.MustCompile(`/videos/(?:[^/]+/)?(\d+)`),
		regexp.MustCompile(`fb\.watch/([A-Za-z0-9_-]+)`),
	},
	model.PlatformTwitter: {
		regexp.MustCompile(`(?:twitter|x)\.com/[^/]+/status/(\d+)`),
	},
	model.PlatformTikTok: {
		regexp.MustCompile(`/video/(\d+)`),
	},
}

// ContentID extracts the platform's identifier for the content (video id,
// shortcode, tweet id). Returns "" when the URL carries none.
func ContentID(kind model.PlatformKind, rawURL string) string {
	for _, re := range idPatterns[kind] {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
