package validation

import (
	"regexp"
	"strings"
)

var (
	nonWordPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	imageKeyPattern = regexp.MustCompile(`/([a-f0-9]+)_`)
)

// NormalizeText lower-cases, strips punctuation, and collapses whitespace.
// Used for verbatim duplicate detection; the text is not truncated.
func NormalizeText(text string) string {
	s := strings.ToLower(text)
	s = nonWordPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// ProductKey derives a grouping key representing the product an ad text
// sells: normalized text reduced to its first five words longer than
// three characters. Returns "unknown" when nothing survives.
func ProductKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonWordPattern.ReplaceAllString(s, " ")

	var words []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > 3 {
			words = append(words, w)
			if len(words) == 5 {
				break
			}
		}
	}
	if len(words) == 0 {
		return "unknown"
	}
	return strings.Join(words, " ")
}

// ImageKey extracts the content identifier from a CDN image URL so the
// same creative served under different URLs still matches. Falls back to
// the whole URL when no identifier is present.
func ImageKey(url string) string {
	if m := imageKeyPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}
