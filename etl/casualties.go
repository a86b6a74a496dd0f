package etl

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParsedCasualties ist das Ergebnis von ParseCasualties.
type ParsedCasualties struct {
	Low              *int64
	High             *int64
	Best             *int64
	IncludesInjuries bool
	Notes            string
	Text             string
}

// Valid meldet, ob eine Zahl erkannt wurde.
func (p ParsedCasualties) Valid() bool {
	return p.Low != nil || p.High != nil || p.Best != nil
}

// Estimate ist eine Schätzung aus einer vagen Formulierung.
type Estimate struct {
	Low, High, Best *int64
	Phrase          string
}

// QuantityHeuristic übersetzt vage Mengenangaben ("several hundred") in
// Zahlen. Die Tabelle ist austauschbar und nicht abschließend.
type QuantityHeuristic interface {
	Estimate(text string) (Estimate, bool)
}

// Phrase ist ein Eintrag einer PhraseTable. Nil-Werte markieren bekannte,
// aber nicht bezifferbare Formulierungen.
type Phrase struct {
	Text            string
	Low, High, Best *int64
}

type compiledPhrase struct {
	Phrase
	re *regexp.Regexp
}

// PhraseTable ist eine QuantityHeuristic über eine feste Liste. Längere
// Formulierungen gewinnen gegen kürzere, die in ihnen enthalten sind.
type PhraseTable struct {
	phrases []compiledPhrase
}

// NewPhraseTable kompiliert die Liste.
func NewPhraseTable(phrases []Phrase) *PhraseTable {
	out := make([]compiledPhrase, 0, len(phrases))
	for _, p := range phrases {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.Text) + `\b`)
		out = append(out, compiledPhrase{Phrase: p, re: re})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Text) > len(out[j].Text)
	})
	return &PhraseTable{phrases: out}
}

func (t *PhraseTable) Estimate(text string) (Estimate, bool) {
	for _, p := range t.phrases {
		if p.re.MatchString(text) {
			return Estimate{Low: p.Low, High: p.High, Best: p.Best, Phrase: p.Text}, true
		}
	}
	return Estimate{}, false
}

func n(v int64) *int64 { return &v }

func phrase(text string, low, high, best int64) Phrase {
	return Phrase{Text: text, Low: n(low), High: n(high), Best: n(best)}
}

// DefaultPhrases ist die Tabelle aus den Methodik-Notizen des Projekts.
var DefaultPhrases = []Phrase{
	phrase("few", 2, 10, 5),
	phrase("several", 3, 12, 7),
	phrase("some", 5, 20, 10),
	phrase("a dozen", 10, 14, 12),
	phrase("dozens", 24, 100, 50),
	phrase("hundred", 100, 100, 100),
	phrase("hundreds", 200, 900, 400),
	phrase("several hundred", 200, 900, 500),
	phrase("many hundreds", 500, 900, 700),
	phrase("thousand", 1000, 1000, 1000),
	phrase("thousands", 2000, 9000, 4000),
	phrase("several thousand", 2000, 9000, 5000),
	phrase("many thousand", 5000, 9000, 7000),
	phrase("many thousands", 5000, 15000, 10000),
	phrase("tens of thousands", 10000, 99000, 30000),
	phrase("over ten thousand", 10000, 20000, 15000),
	phrase("hundreds of thousands", 100000, 900000, 300000),
	phrase("several hundred thousand", 200000, 900000, 500000),
	phrase("million", 1000000, 1000000, 1000000),
	phrase("millions", 2000000, 10000000, 5000000),
	phrase("several million", 2000000, 10000000, 5000000),
	{Text: "heavy casualties"},
	{Text: "heavy"},
	{Text: "significant"},
	{Text: "unknown"},
	{Text: "uncertain"},
}

// CasualtyParser wandelt Opferangaben in low/high/best um.
type CasualtyParser struct {
	Heuristic QuantityHeuristic
}

// NewCasualtyParser erstellt einen Parser. Ohne Heuristik wird
// DefaultPhrases verwendet.
func NewCasualtyParser(h QuantityHeuristic) *CasualtyParser {
	if h == nil {
		h = NewPhraseTable(DefaultPhrases)
	}
	return &CasualtyParser{Heuristic: h}
}

var defaultCasualtyParser = NewCasualtyParser(nil)

// ParseCasualties nutzt den Standard-Parser.
func ParseCasualties(text string) ParsedCasualties {
	return defaultCasualtyParser.Parse(text)
}

const numberExpr = `(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d+))?(?:\s*(million|thousand|lakhs?|crores?))?`

var (
	reInjuries   = regexp.MustCompile(`(?i)injur|wound|hurt|casualt`)
	reDeathsOnly = regexp.MustCompile(`(?i)killed|deaths|dead|died|fatalities`)
	reRange      = regexp.MustCompile(`(?i)` + numberExpr + `\s*(?:-|to)\s*` + numberExpr)
	reOver       = regexp.MustCompile(`(?i)\b(?:over|more than|at least|minimum(?: of)?|in excess of|upwards of)\s+` + numberExpr)
	reApprox     = regexp.MustCompile(`(?i)(?:\b(?:approximately|approx\.?|about|around|circa|nearly|estimated|an estimated|roughly)\s*|\bc\.\s*|~\s*)` + numberExpr)
	reNumber     = regexp.MustCompile(`(?i)` + numberExpr)
)

var multipliers = map[string]float64{
	"thousand": 1e3,
	"lakh":     1e5, "lakhs": 1e5,
	"million": 1e6,
	"crore":   1e7, "crores": 1e7,
}

// Parse wertet die Strategien in fester Reihenfolge aus: Bereich,
// "over X", "about X", einzelne Zahl, Formulierungstabelle.
func (p *CasualtyParser) Parse(text string) ParsedCasualties {
	out := ParsedCasualties{Text: text}
	s := normalizeDashes(strings.TrimSpace(text))
	if s == "" {
		return out
	}
	out.IncludesInjuries = reInjuries.MatchString(s) && !reDeathsOnly.MatchString(s)

	for _, m := range reRange.FindAllStringSubmatch(s, -1) {
		if isYearPair(m) {
			continue
		}
		low, lowMul := numberValue(m[1], m[2], m[3])
		high, _ := numberValue(m[4], m[5], m[6])
		// "1-2 million": der Multiplikator gilt für beide Seiten
		if !lowMul && m[6] != "" {
			low *= multipliers[strings.ToLower(m[6])]
		}
		if low <= high && high > 0 && low <= maxFigure {
			l, h := int64(low), int64(high)
			out.Low, out.High, out.Best = &l, &h, n(BestFromRange(l, h))
			return out
		}
	}

	if m := reOver.FindStringSubmatch(s); m != nil {
		x, _ := numberValue(m[1], m[2], m[3])
		if x > 0 {
			out.Low, out.High, out.Best = n(int64(x)), n(round(x*1.5)), n(round(x*1.2))
			out.Notes = "Lower bound from 'over/more than' phrasing"
			return out
		}
	}

	if m := reApprox.FindStringSubmatch(s); m != nil {
		x, _ := numberValue(m[1], m[2], m[3])
		if x > 0 {
			out.Low, out.High, out.Best = n(round(x*0.8)), n(round(x*1.2)), n(int64(x))
			out.Notes = "Approximate figure with ±20% margin"
			return out
		}
	}

	for _, m := range reNumber.FindAllStringSubmatch(s, -1) {
		x, hasMul := numberValue(m[1], m[2], m[3])
		// Jahreszahlen überspringen
		if !hasMul && x >= minYear && x <= maxYear && !strings.Contains(m[1], ",") {
			continue
		}
		if x > 0 {
			v := int64(x)
			out.Low, out.High, out.Best = &v, n(v), n(v)
			return out
		}
	}

	if p.Heuristic != nil {
		if est, ok := p.Heuristic.Estimate(s); ok {
			out.Low, out.High, out.Best = est.Low, est.High, est.Best
			out.Notes = fmt.Sprintf("Interpreted from '%s'", est.Phrase)
			return out
		}
	}

	out.Notes = "Could not parse numeric value"
	return out
}

// BestFromRange liefert den Punktschätzer eines Bereichs: geometrisches
// Mittel bei mehr als Faktor 5 zwischen den Grenzen, sonst Mittelwert.
func BestFromRange(low, high int64) int64 {
	if low > 0 && high > low*5 {
		return int64(math.Sqrt(float64(low) * float64(high)))
	}
	return (low + high) / 2
}

// isYearPair erkennt Bereiche wie "1857-1858" ohne Tausendertrenner.
func isYearPair(m []string) bool {
	if m[3] != "" || m[6] != "" || m[2] != "" || m[5] != "" {
		return false
	}
	if strings.Contains(m[1], ",") || strings.Contains(m[4], ",") {
		return false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[4])
	return a >= minYear && a <= maxYear && b >= minYear && b <= maxYear
}

// maxFigure begrenzt erkannte Zahlen. Größere Werte gelten als nicht
// erkannt, int64(x) wäre außerhalb des Wertebereichs undefiniert.
const maxFigure = 1e12

func numberValue(intPart, fracPart, mul string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(intPart, ",", "")+"."+orZero(fracPart), 64)
	if err != nil {
		return 0, false
	}
	m, hasMul := multipliers[strings.ToLower(mul)]
	if hasMul {
		v = math.Round(v * m)
	}
	if v > maxFigure {
		return 0, hasMul
	}
	return v, hasMul
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
