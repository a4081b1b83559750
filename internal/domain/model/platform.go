package model

import "strings"

// PlatformKind identifies a supported content host.
type PlatformKind string

const (
	PlatformYouTube   PlatformKind = "youtube"
	PlatformInstagram PlatformKind = "instagram"
	PlatformFacebook  PlatformKind = "facebook"
	PlatformTwitter   PlatformKind = "twitter"
	PlatformTikTok    PlatformKind = "tiktok"
	PlatformUnknown   PlatformKind = "unknown"
)

// SupportedPlatforms lists every platform with an extractor, in classification priority order.
func SupportedPlatforms() []PlatformKind {
	return []PlatformKind{
		PlatformYouTube,
		PlatformInstagram,
		PlatformFacebook,
		PlatformTwitter,
		PlatformTikTok,
	}
}

func (p PlatformKind) String() string { return string(p) }

// Supported returns true for every kind except unknown.
func (p PlatformKind) Supported() bool {
	for _, s := range SupportedPlatforms() {
		if s == p {
			return true
		}
	}
	return false
}

// DisplayName returns the human-facing platform name.
func (p PlatformKind) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	case PlatformTwitter:
		return "Twitter"
	case PlatformTikTok:
		return "TikTok"
	default:
		return "Unknown"
	}
}

// ParsePlatformKind converts a name to a PlatformKind, returning unknown when it does not match.
func ParsePlatformKind(s string) PlatformKind {
	switch v := PlatformKind(strings.ToLower(strings.TrimSpace(s))); v {
	case PlatformYouTube, PlatformInstagram, PlatformFacebook, PlatformTwitter, PlatformTikTok:
		return v
	case "x":
		return PlatformTwitter
	default:
		return PlatformUnknown
	}
}
