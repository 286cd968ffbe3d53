package actors

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/design4music/sni-platform-sub004/internal/normalizer"
)

// aliasMatcher matches one alias. CJK and Thai aliases match by substring
// over normalized text; everything else compiles to a whole-word pattern
// so short codes never match inside longer words (EU in museum, ROK in
// brokeback).
type aliasMatcher struct {
	code      string
	alias     string
	substring string
	pattern   *regexp.Regexp
}

func newAliasMatcher(code, alias string) (aliasMatcher, error) {
	lowered := normalizer.Normalize(alias)
	if lowered == "" {
		return aliasMatcher{}, fmt.Errorf("alias normalizes to empty string")
	}

	if hasCJKOrThai(alias) {
		return aliasMatcher{code: code, alias: alias, substring: lowered}, nil
	}

	// Word boundaries over Unicode letters and digits; regexp's \b is
	// ASCII-only and unusable for Cyrillic aliases.
	expr := `(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(lowered) + `(?:[^\p{L}\p{N}_]|$)`
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return aliasMatcher{}, err
	}
	return aliasMatcher{code: code, alias: alias, pattern: pattern}, nil
}

func (m aliasMatcher) matches(normText string) bool {
	if m.substring != "" {
		return strings.Contains(normText, m.substring)
	}
	return m.pattern.MatchString(normText)
}

func hasCJKOrThai(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Thai) {
			return true
		}
	}
	return false
}

// FirstHit returns the code of the first alias pattern matching text, in
// load order. Empty input never matches.
func (v *Vocabulary) FirstHit(text string) (string, bool) {
	normText := normalizer.Normalize(text)
	if normText == "" {
		return "", false
	}

	for _, m := range v.matchers {
		if m.matches(normText) {
			return m.code, true
		}
	}
	return "", false
}

// AllHits returns every entity whose aliases match text, deduplicated,
// ordered by the first matching pattern per entity.
func (v *Vocabulary) AllHits(text string) []string {
	normText := normalizer.Normalize(text)
	if normText == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var hits []string
	for _, m := range v.matchers {
		if _, done := seen[m.code]; done {
			continue
		}
		if m.matches(normText) {
			seen[m.code] = struct{}{}
			hits = append(hits, m.code)
		}
	}
	return hits
}
