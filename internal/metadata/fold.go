package metadata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper decomposes characters and removes combining marks so
// "Beyoncé" and "Beyonce" fold to the same key.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold reduces a cleaned string to its comparison form: lowercase, diacritics
// stripped, punctuation other than apostrophes and in-word hyphens replaced
// with spaces, whitespace collapsed. A name with no letters or digits ("!!!")
// keeps its lowercased form so it still gets a distinct key. Folded strings
// feed similarity scoring and the history dedup key. Fold is idempotent.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	folded := strings.TrimSpace(whitespaceRuns.ReplaceAllString(b.String(), " "))
	if folded == "" {
		return whitespaceRuns.ReplaceAllString(s, " ")
	}
	return folded
}

// FoldTrack folds both fields of a normalized track.
func FoldTrack(t Track) Track {
	return Track{Title: Fold(t.Title), Artist: Fold(t.Artist)}
}

// CompareString builds the "artist - title" string used for similarity
// comparison against catalog candidates.
func CompareString(artist, title string) string {
	return Fold(artist) + " - " + Fold(title)
}
