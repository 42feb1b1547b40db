// internal/slug/slug.go
//
// Slug helpers.
//
// • Make(title) ─ converts arbitrary text into a URL-safe slug restricted
//   to ASCII a-z, 0-9 and “-”.
// • Unique(base, taken) ─ returns base, or base-2, base-3, … until taken
//   reports false.
//
// Rules (Make)
// ------------
// 1. Fold diacritics (“Île” → “ile”, “Ngorongoro Crater” is unchanged).
// 2. Lower-case everything.
// 3. Convert any run of non-[a-z0-9] characters to one “-”.
// 4. Trim leading / trailing “-”.
// 5. If the result is empty, return "item".
//
// Notes
// -----
// • Slugs are max 100 bytes; Unique keeps suffixed slugs inside that limit.

package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen caps slug length.
const MaxLen = 100

// Make converts title → lower-kebab ASCII.
func Make(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))

	lastWasDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			// any non-ASCII or punctuation becomes a single dash
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "item"
	}
	return truncate(s, MaxLen)
}

// Unique appends -2, -3, … to base until taken(candidate) is false.
func Unique(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate := truncate(base, MaxLen-len(suffix)) + suffix
		if !taken(candidate) {
			return candidate
		}
	}
}

// truncate cuts s to max bytes and trims a trailing dash left by the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimRight(s[:max], "-")
}
