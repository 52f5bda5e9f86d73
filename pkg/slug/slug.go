package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into a base letter plus a combining mark.
var foldReplacer = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"đ", "d",
	"ł", "l",
	"œ", "oe",
)

// Generate creates a URL-friendly slug from the given name.
// Accented letters are folded to their ASCII base letter.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Größe Übersicht" → "grosse-ubersicht"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = foldReplacer.Replace(slug)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, slug); err == nil {
		slug = folded
	}

	slug = slugRegexp.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Truncate shortens slug to at most max bytes without leaving a trailing hyphen.
// A non-positive max leaves the slug unchanged.
func Truncate(slug string, max int) string {
	if max <= 0 || len(slug) <= max {
		return slug
	}
	return strings.TrimRight(slug[:max], "-")
}
