// Package normalizer holds the title normalization contract shared by the
// fetcher and the actor matcher. All matching happens over Normalize output;
// stored display and norm forms are derived here and nowhere else.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// suffix dashes accepted between a title and its trailing publisher name
var publisherDashes = []string{"–", "—", "-"}

// Normalize applies the matching contract: Unicode NFKC, lowercase,
// whitespace runs collapsed to a single space, trimmed.
func Normalize(s string) string {
	return collapseWhitespace(strings.ToLower(norm.NFKC.String(s)))
}

// DisplayTitle produces the stored display form: NFKC, the exact
// " – <publisher>" / " — <publisher>" / " - <publisher>" suffix stripped
// (case-sensitive publisher match only), whitespace collapsed.
func DisplayTitle(raw, publisher string) string {
	s := strings.TrimSpace(norm.NFKC.String(raw))

	if publisher != "" {
		for _, dash := range publisherDashes {
			suffix := " " + dash + " " + publisher
			if strings.HasSuffix(s, suffix) {
				s = strings.TrimSuffix(s, suffix)
				break
			}
		}
	}

	return collapseWhitespace(s)
}

// NormTitle derives the matching form from a display title: lowercased,
// keeping letters, digits, underscore, whitespace and the informative
// punctuation set (- , . ! ? : ;). Dash punctuation folds to an ASCII
// hyphen. Everything else is dropped and whitespace is recollapsed.
func NormTitle(display string) string {
	lower := strings.ToLower(display)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.In(r, unicode.Pd):
			b.WriteRune('-')
		case r == ',' || r == '.' || r == '!' || r == '?' || r == ':' || r == ';':
			b.WriteRune(r)
		}
	}

	return collapseWhitespace(b.String())
}

// ContentHash is the title dedup key: the first 16 hex characters of
// SHA-256 over "<title_norm>||<publisher_domain>". The domain may be empty.
func ContentHash(titleNorm, publisherDomain string) string {
	hash := sha256.Sum256([]byte(titleNorm + "||" + publisherDomain))
	return hex.EncodeToString(hash[:])[:16]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
