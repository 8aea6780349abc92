package translate

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// AssessQuality scores a translation with cheap heuristics: empty output is
// unusable, output that barely differs from the source on a cross-language
// pair probably was not translated, and extreme length ratios suggest the
// provider added or dropped content. Scores land in [0, 1].
func AssessQuality(source, translated, sourceLang, targetLang string) float64 {
	source = strings.TrimSpace(source)
	translated = strings.TrimSpace(translated)

	if translated == "" {
		return 0
	}
	if source == "" {
		return 1
	}

	score := 1.0

	if sourceLang != targetLang && len(source) > 20 {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(source, translated, false)
		distance := dmp.DiffLevenshtein(diffs)
		maxLen := len([]rune(source))
		if l := len([]rune(translated)); l > maxLen {
			maxLen = l
		}
		if maxLen > 0 {
			similarity := 1 - float64(distance)/float64(maxLen)
			if similarity > 0.95 {
				score -= 0.5
			}
		}
	}

	ratio := float64(len([]rune(translated))) / float64(len([]rune(source)))
	if ratio > 3.0 || ratio < 0.25 {
		score -= 0.3
	}

	if score < 0 {
		score = 0
	}
	return score
}
