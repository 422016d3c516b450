package metadata

import (
	"regexp"
	"strings"
)

// Track is the cleaned (title, artist) pair derived from one raw event.
type Track struct {
	Title  string
	Artist string
}

// artistSuffixes matches source-attribution suffixes appended to channel-style
// artist names. Applied repeatedly because suffixes stack ("X Music Records").
var artistSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*-\s*Topic$`),
	regexp.MustCompile(`(?i)\s+VEVO$`),
	regexp.MustCompile(`(?i)\s+Records$`),
	regexp.MustCompile(`(?i)\s+Music$`),
	regexp.MustCompile(`(?i)\s+Official$`),
}

// titleDescriptors matches bracketed video/audio descriptors anywhere in a
// title, in both parenthesis and square-bracket forms.
var titleDescriptors = regexp.MustCompile(
	`(?i)\s*[(\[]\s*(official\s+music\s+video|official\s+video|official\s+audio|music\s+video|lyric\s+video|lyrics|audio|visuali[sz]er|hd|4k)\s*[)\]]`)

// featuringConnector matches the variants of featuring-artist markers that get
// collapsed to the canonical "feat." connector. Requires surrounding
// whitespace so words like "ft" inside names are left alone.
var featuringConnector = regexp.MustCompile(`(?i)\s+(?:featuring|feat\.?|ft\.?|with|w/|x|vs\.?|versus)\s+`)

// repeatedFeat collapses stacked connectors left over from inputs like
// "A feat. ft. B".
var repeatedFeat = regexp.MustCompile(`(?:feat\.\s+)+feat\.`)

// versionMarkers standardizes remix/version tags. An empty replacement removes
// the marker entirely; otherwise spacing and capitalization are canonicalized.
var versionMarkers = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\s*\(\s*original\s+mix\s*\)`), ""},
	{regexp.MustCompile(`(?i)\s*\(\s*radio\s+edit\s*\)`), " (Radio Edit)"},
	{regexp.MustCompile(`(?i)\s*\(\s*extended\s+mix\s*\)`), " (Extended Mix)"},
	{regexp.MustCompile(`(?i)\s*\(\s*club\s+mix\s*\)`), " (Club Mix)"},
	{regexp.MustCompile(`(?i)\s*\(\s*remix\s*\)`), " (Remix)"},
	{regexp.MustCompile(`(?i)\s*\(\s*remastered\s*\)`), " (Remastered)"},
	{regexp.MustCompile(`(?i)\s*\(\s*remaster\s*\)`), " (Remaster)"},
	{regexp.MustCompile(`(?i)\s*\(\s*deluxe\s+(?:edition|version)\s*\)`), " (Deluxe Edition)"},
	{regexp.MustCompile(`(?i)\s*\(\s*acoustic\s*\)`), " (Acoustic)"},
	{regexp.MustCompile(`(?i)\s*\(\s*live\s*\)`), " (Live)"},
	{regexp.MustCompile(`(?i)\s*\(\s*instrumental\s*\)`), " (Instrumental)"},
}

var (
	ampersandWord   = regexp.MustCompile(`\s*&\s*`)
	plusSign        = regexp.MustCompile(`\s*\+\s*`)
	punctuationRuns = regexp.MustCompile(`([!?.,;:'"-])[!?.,;:'"-]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// Normalize derives the canonical (title, artist) pair from raw event strings.
// It never fails; empty or garbage input yields empty canonical strings.
func Normalize(rawTitle, rawArtist string) Track {
	return Track{
		Title:  CleanTitle(rawTitle),
		Artist: CleanArtist(rawArtist),
	}
}

// CleanArtist strips source-attribution suffixes and normalizes featuring
// connectors and symbols in an artist string.
func CleanArtist(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = stripArtistSuffixes(s)
	s = normalizeFeaturing(s)
	return normalizeSymbols(s)
}

// CleanTitle strips bracketed descriptors and standardizes featuring and
// remix/version markers in a title string.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = titleDescriptors.ReplaceAllString(s, " ")
	s = normalizeFeaturing(s)
	s = normalizeVersions(s)
	return normalizeSymbols(s)
}

func stripArtistSuffixes(s string) string {
	for {
		trimmed := s
		for _, suffix := range artistSuffixes {
			trimmed = suffix.ReplaceAllString(trimmed, "")
		}
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func normalizeFeaturing(s string) string {
	s = featuringConnector.ReplaceAllString(s, " feat. ")
	s = repeatedFeat.ReplaceAllString(s, "feat.")
	return s
}

func normalizeVersions(s string) string {
	for _, marker := range versionMarkers {
		s = marker.pattern.ReplaceAllString(s, marker.replacement)
	}
	return s
}

func normalizeSymbols(s string) string {
	s = ampersandWord.ReplaceAllString(s, " and ")
	s = plusSign.ReplaceAllString(s, " and ")
	s = punctuationRuns.ReplaceAllString(s, "$1")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
