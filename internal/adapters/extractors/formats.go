package extractors

import (
	"strings"

	"github.com/target/mediafetch/internal/domain/model"
)

// formatPlan is how one format hint maps onto yt-dlp and the resulting artifact.
type formatPlan struct {
	Selector     string
	ExtractAudio bool
	Remux        string
	Ext          string
	ResultFormat string
	TitleSuffix  string
	Image        bool
}

const noWatermarkSuffix = " (No Watermark)"

func bestPlan() formatPlan {
	return formatPlan{Selector: "best", Remux: "mp4", Ext: "mp4", ResultFormat: model.FormatBest}
}

// resolveFormat maps a hint to a plan. Unknown hints resolve to best.
func resolveFormat(kind model.PlatformKind, hint string) formatPlan {
	switch h := model.NormalizeFormatHint(hint); h {
	case model.FormatAudio:
		return formatPlan{
			Selector:     "bestaudio/best",
			ExtractAudio: true,
			Ext:          "mp3",
			ResultFormat: model.FormatAudio,
		}
	case model.FormatVideo, model.FormatVideoMP4:
		return formatPlan{Selector: "best[ext=mp4]/best", Remux: "mp4", Ext: "mp4", ResultFormat: h}
	case model.FormatVideoNoWatermark:
		if kind != model.PlatformTikTok {
			return bestPlan()
		}
		return formatPlan{
			Selector:     "best[ext=mp4]/best",
			Remux:        "mp4",
			Ext:          "mp4",
			ResultFormat: model.FormatVideoNoWatermark,
			TitleSuffix:  noWatermarkSuffix,
		}
	case model.FormatImage:
		return formatPlan{Ext: "jpg", ResultFormat: model.FormatImage, Image: true}
	default:
		return bestPlan()
	}
}

// wantsImage reports whether the image scrape should be attempted for hint.
func wantsImage(hint string) bool {
	return strings.Contains(strings.ToLower(hint), model.FormatImage)
}
