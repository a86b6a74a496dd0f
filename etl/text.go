package etl

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength begrenzt die Länge erzeugter Slugs.
const MaxSlugLength = 100

var (
	reCitation      = regexp.MustCompile(`(?i)\[(?:\d+|[a-z]|citation needed|note \d+|clarification needed)\]`)
	reSpaces        = regexp.MustCompile(`[\t\f\v\r\n\x{00A0} ]+`)
	reSlugSeparator = regexp.MustCompile(`[^a-z0-9]+`)
)

var ligatures = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"œ", "oe",
	"æ", "ae",
	"ß", "ss",
)

// CleanText normalisiert Zelltext: NFC, Belegklammern entfernen, Whitespace
// zusammenfassen.
func CleanText(s string) string {
	t := transform.Chain(norm.NFC)
	normalized, _, err := transform.String(t, s)
	if err == nil {
		s = normalized
	}
	s = reCitation.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// foldASCII zerlegt Zeichen (NFKD) und verwirft kombinierende Zeichen, so
// dass "Pānīpat" zu "Panipat" wird.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		return s
	}
	return folded
}

// Slugify erzeugt einen URL-Slug aus einem Titel.
func Slugify(title string) string {
	s := strings.ToLower(foldASCII(title))
	s = strings.ReplaceAll(s, "'", "")
	s = reSlugSeparator.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = s[:MaxSlugLength]
		// nicht mitten im Wort abschneiden, wenn vermeidbar
		if i := strings.LastIndexByte(s, '-'); i > MaxSlugLength/2 {
			s = s[:i]
		}
		s = strings.Trim(s, "-")
	}
	return s
}

// Truncate kürzt auf maximal n Runen.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
