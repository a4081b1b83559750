package extractors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/mediafetch/internal/domain/model"
)

// JMESPath expressions over yt-dlp's --dump-single-json output.
const (
	exprTitle     = "title || fulltitle"
	exprUploader  = "uploader || channel || creator || uploader_id"
	exprDuration  = "duration"
	exprViews     = "view_count"
	exprLikes     = "like_count"
	exprComments  = "comment_count"
	exprThumbnail = "thumbnail || thumbnails[-1].url"
	exprDesc      = "description"
	exprUploaded  = "upload_date"
	exprVCodec    = "vcodec"
	exprVideoFmts = "length(formats[?vcodec != 'none'] || `[]`)"
	exprMediaURL  = "url || requested_downloads[0].url"
)

// JMESPath expressions over schema.org JSON-LD found on platform pages.
const (
	exprLDAuthor   = "author.name || author[0].name || creator.name || author.alternateName"
	exprLDUploaded = "uploadDate || datePublished"
	exprLDThumb    = "thumbnailUrl[0] || thumbnailUrl || image.url || image"
	exprLDDesc     = "description || caption || articleBody"
	exprLDContent  = "contentUrl || video.contentUrl"
)

func search(expr string, data any) any {
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return nil
	}
	return v
}

func pickString(data any, expr string) string {
	switch v := search(expr, data).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func pickFloat(data any, expr string) float64 {
	switch v := search(expr, data).(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func pickCount(data any, expr string) *int64 {
	switch v := search(expr, data).(type) {
	case float64:
		return model.Int64(int64(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return model.Int64(n)
		}
	}
	return nil
}

// truncate cuts s to limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// parseMediaInfo turns yt-dlp metadata JSON into ContentInfo.
func parseMediaInfo(raw []byte) (*model.ContentInfo, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode media info: %w", err)
	}
	if _, ok := data.(map[string]any); !ok {
		return nil, errors.New("media info is not a JSON object")
	}

	info := &model.ContentInfo{
		Title:        pickString(data, exprTitle),
		Uploader:     pickString(data, exprUploader),
		Duration:     pickFloat(data, exprDuration),
		ViewCount:    pickCount(data, exprViews),
		LikeCount:    pickCount(data, exprLikes),
		CommentCount: pickCount(data, exprComments),
		Thumbnail:    pickString(data, exprThumbnail),
		Description:  pickString(data, exprDesc),
		UploadDate:   pickString(data, exprUploaded),
		MediaURL:     pickString(data, exprMediaURL),
	}

	if vcodec := pickString(data, exprVCodec); vcodec != "" {
		info.IsVideo = vcodec != "none"
	} else {
		info.IsVideo = pickFloat(data, exprVideoFmts) > 0 || info.Duration > 0
	}
	return info, nil
}

// ldInfo fills gaps in info from JSON-LD blocks.
func ldInfo(info *model.ContentInfo, blocks []any) {
	for _, block := range blocks {
		if info.Uploader == "" {
			info.Uploader = pickString(block, exprLDAuthor)
		}
		if info.UploadDate == "" {
			info.UploadDate = pickString(block, exprLDUploaded)
		}
		if info.Thumbnail == "" {
			info.Thumbnail = pickString(block, exprLDThumb)
		}
		if info.Description == "" {
			info.Description = pickString(block, exprLDDesc)
		}
		if info.MediaURL == "" {
			if media := pickString(block, exprLDContent); media != "" {
				info.MediaURL = media
				info.IsVideo = true
			}
		}
	}
}
