// Package langdetect wraps trigram-based language detection for title text.
// Detection is deterministic for a given input, so re-ingesting the same
// title always stores the same language.
package langdetect

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// Inputs shorter than this are too ambiguous to classify.
const minRunes = 3

// Detect returns the ISO 639-3 code and confidence for text. Inputs
// shorter than three runes, or inputs the detector cannot classify,
// yield nil with confidence 0.
func Detect(text string) (*string, float64) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minRunes {
		return nil, 0
	}

	info := whatlanggo.Detect(trimmed)
	if info.Lang < 0 {
		return nil, 0
	}

	code := info.Lang.Iso6393()
	if code == "" {
		return nil, 0
	}

	return &code, info.Confidence
}
