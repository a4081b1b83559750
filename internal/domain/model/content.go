package model

import "strings"

// Format hints understood by the extractors. The set is open: unknown hints fall back to best.
const (
	FormatBest             = "best"
	FormatVideo            = "video"
	FormatVideoMP4         = "video_mp4"
	FormatAudio            = "audio"
	FormatImage            = "image"
	FormatVideoNoWatermark = "video_no_watermark"
)

// KnownFormatHints lists the hints advertised to clients.
func KnownFormatHints() []string {
	return []string{FormatBest, FormatVideo, FormatVideoMP4, FormatAudio, FormatImage, FormatVideoNoWatermark}
}

// NormalizeFormatHint trims and lowercases a hint, defaulting to best.
func NormalizeFormatHint(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return FormatBest
	}
	return h
}

// ExtensionForHint returns the container a hint normally produces. Extractors
// may still land a different one through Target.WithExt when a fallback runs.
func ExtensionForHint(hint string) string {
	switch NormalizeFormatHint(hint) {
	case FormatAudio:
		return "mp3"
	case FormatImage:
		return "jpg"
	default:
		return "mp4"
	}
}

// ExtractionResult is produced once per successful retrieval and is immutable afterwards.
type ExtractionResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"title"`
	Path     string `json:"-"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
}

// ContentInfo is the result of a metadata-only probe.
type ContentInfo struct {
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	Duration     float64 `json:"duration,omitempty"`
	ViewCount    *int64  `json:"view_count,omitempty"`
	LikeCount    *int64  `json:"like_count,omitempty"`
	CommentCount *int64  `json:"comment_count,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Description  string  `json:"description,omitempty"`
	UploadDate   string  `json:"upload_date,omitempty"`
	IsVideo      bool    `json:"is_video"`

	// MediaURL is a direct media location discovered while probing. Never sent to clients.
	MediaURL string `json:"-"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
