package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/mediafetch/internal/domain/model"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name     string
		kind     model.PlatformKind
		hint     string
		selector string
		ext      string
		format   string
		audio    bool
		suffix   string
	}{
		{"audio", model.PlatformYouTube, "audio", "bestaudio/best", "mp3", model.FormatAudio, true, ""},
		{"video", model.PlatformTwitter, "video", "best[ext=mp4]/best", "mp4", model.FormatVideo, false, ""},
		{"video_mp4", model.PlatformFacebook, "VIDEO_MP4", "best[ext=mp4]/best", "mp4", model.FormatVideoMP4, false, ""},
		{"no watermark on tiktok", model.PlatformTikTok, "video_no_watermark", "best[ext=mp4]/best", "mp4", model.FormatVideoNoWatermark, false, " (No Watermark)"},
		{"no watermark elsewhere", model.PlatformYouTube, "video_no_watermark", "best", "mp4", model.FormatBest, false, ""},
		{"empty", model.PlatformInstagram, "", "best", "mp4", model.FormatBest, false, ""},
		{"unknown", model.PlatformInstagram, "8k", "best", "mp4", model.FormatBest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := resolveFormat(tt.kind, tt.hint)
			assert.Equal(t, tt.selector, plan.Selector)
			assert.Equal(t, tt.ext, plan.Ext)
			assert.Equal(t, tt.format, plan.ResultFormat)
			assert.Equal(t, tt.audio, plan.ExtractAudio)
			assert.Equal(t, tt.suffix, plan.TitleSuffix)
		})
	}
}

func TestResolveFormat_Image(t *testing.T) {
	plan := resolveFormat(model.PlatformTwitter, "image")
	assert.True(t, plan.Image)
	assert.Equal(t, "jpg", plan.Ext)
	assert.Empty(t, plan.Selector)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "ééé...", truncate("éééééé", 3))
	assert.Equal(t, "unbounded", truncate(" unbounded ", 0))
}

func TestExtFromURL(t *testing.T) {
	assert.Equal(t, "jpg", extFromURL("https://pbs.twimg.com/media/A.jpg?format=jpg&name=large", "mp4"))
	assert.Equal(t, "png", extFromURL("https://cdn.example/x?format=png", "mp4"))
	assert.Equal(t, "mp4", extFromURL("https://cdn.example/stream", "mp4"))
	assert.True(t, isPlaylistURL("https://cdn.example/v/master.M3U8?token=1"))
	assert.False(t, isPlaylistURL("https://cdn.example/v/clip.mp4"))
}
