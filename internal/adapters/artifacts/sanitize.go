package artifacts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxStemBytes = 80

// sanitizeComponent reduces a free-text title to a filename-safe token.
// Path separators, control characters and shell-hostile punctuation become
// underscores, runs of underscores collapse, and the result is capped at
// maxStemBytes without splitting a UTF-8 sequence.
func sanitizeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		keep := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.'
		if !keep {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}

	out := strings.Trim(b.String(), "_.-")
	out = strings.ReplaceAll(out, "..", "_")
	return truncateBytes(out, maxStemBytes)
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], "_.-")
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	var b strings.Builder
	for _, r := range ext {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || b.Len() > 8 {
		return "bin"
	}
	return b.String()
}
