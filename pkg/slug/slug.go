// Package slug derives URL-safe identifiers from human-readable names
// and titles. Derivation is pure and deterministic: a slug is computed
// once from the name at first save and never recomputed afterward.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)
	hyphensRE  = regexp.MustCompile(`-+`)
)

// Make converts arbitrary text into a lowercase slug of ASCII letters,
// digits, and single hyphens. Unicode is NFD-normalized and nonspacing
// marks are dropped, so accented characters fold to their closest ASCII
// form ("Café" -> "cafe"). Runs of everything else collapse to one
// hyphen. Uniqueness is not enforced here; it follows from the unique
// name/title constraints on the entities slugs are derived from.
func Make(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = nonAlnumRE.ReplaceAllString(s, "-")
	s = hyphensRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
