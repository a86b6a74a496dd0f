package etl

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"red-subcontinent/models"
)

const (
	minYear = 1000
	maxYear = 2100
)

// ParsedDate ist das Ergebnis von ParseDate.
type ParsedDate struct {
	Start     *models.Date
	End       *models.Date
	Precision models.DatePrecision
	Text      string
}

// Valid meldet, ob mindestens ein Datum erkannt wurde.
func (p ParsedDate) Valid() bool {
	return p.Start != nil || p.End != nil
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	reMonthDayYear = regexp.MustCompile(`(?i)\b([a-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	reDayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]+)\.?,?\s+(\d{4})\b`)
	reYearRange    = regexp.MustCompile(`(?i)\b(\d{4})\s*(?:-|to|until)\s*(\d{4}|\d{2})\b`)
	reMonthYear    = regexp.MustCompile(`(?i)\b([a-z]+)\.?\s+(\d{4})\b`)
	reDecade       = regexp.MustCompile(`(?i)\b(\d{3})0s\b`)
	reCentury      = regexp.MustCompile(`(?i)\b(?:(early|mid|middle|late)[\s-]+)?(\d{2})(?:st|nd|rd|th)[\s-]+century\b`)
	reSingleYear   = regexp.MustCompile(`\b(\d{4})\b`)
	reDatePrefix   = regexp.MustCompile(`(?i)\b(?:c\.|ca\.|circa|approximately|approx\.?|about|around)\s*`)
)

// ParseDate übersetzt Datumsangaben historischer Quellen in einen
// Datumsbereich mit Genauigkeit. Reihenfolge: exaktes Datum, Jahresbereich,
// Monat und Jahr, Jahrzehnt, Jahrhundert, einzelnes Jahr.
func ParseDate(text string) ParsedDate {
	out := ParsedDate{Text: text, Precision: models.PrecisionYear}
	s := normalizeDashes(strings.TrimSpace(text))
	if s == "" {
		return out
	}

	if dates := exactDates(s); len(dates) > 0 {
		start, end := dates[0], dates[len(dates)-1]
		if end.Before(start) {
			end = start
		}
		return ParsedDate{Start: &start, End: &end, Precision: models.PrecisionExact, Text: text}
	}

	if m := reYearRange.FindStringSubmatch(s); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if len(m[2]) == 2 {
			to = from/100*100 + to
		}
		if inYearRange(from) && inYearRange(to) && from <= to {
			return yearSpan(from, to, models.PrecisionYear, text)
		}
	}

	for _, m := range reMonthYear.FindAllStringSubmatch(s, -1) {
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		if inYearRange(year) {
			start := models.NewDate(year, month, 1)
			end := models.DateOf(start.Time().AddDate(0, 1, -1))
			return ParsedDate{Start: &start, End: &end, Precision: models.PrecisionMonth, Text: text}
		}
	}

	if m := reDecade.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		d *= 10
		if d >= minYear && d <= maxYear-10 {
			return yearSpan(d, d+9, models.PrecisionDecade, text)
		}
	}

	if m := reCentury.FindStringSubmatch(s); m != nil {
		ordinal, _ := strconv.Atoi(m[2])
		base := (ordinal - 1) * 100
		if base >= minYear && base < maxYear {
			from, to := base, base+99
			precision := models.PrecisionCentury
			switch strings.ToLower(m[1]) {
			case "early":
				to = base + 33
				precision = models.PrecisionDecade
			case "mid", "middle":
				from, to = base+34, base+66
				precision = models.PrecisionDecade
			case "late":
				from = base + 67
				precision = models.PrecisionDecade
			}
			return yearSpan(from, to, precision, text)
		}
	}

	stripped := reDatePrefix.ReplaceAllString(s, "")
	for _, m := range reSingleYear.FindAllStringSubmatch(stripped, -1) {
		year, _ := strconv.Atoi(m[1])
		if inYearRange(year) {
			return yearSpan(year, year, models.PrecisionYear, text)
		}
	}

	return out
}

func exactDates(s string) []models.Date {
	type hit struct {
		pos  int
		date models.Date
	}
	var hits []hit
	for _, m := range reMonthDayYear.FindAllStringSubmatchIndex(s, -1) {
		if d, ok := makeDate(s[m[6]:m[7]], s[m[2]:m[3]], s[m[4]:m[5]]); ok {
			hits = append(hits, hit{m[0], d})
		}
	}
	for _, m := range reDayMonthYear.FindAllStringSubmatchIndex(s, -1) {
		if d, ok := makeDate(s[m[6]:m[7]], s[m[4]:m[5]], s[m[2]:m[3]]); ok {
			hits = append(hits, hit{m[0], d})
		}
	}
	// Textreihenfolge herstellen
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]models.Date, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.date)
	}
	return out
}

func makeDate(yearStr, monthStr, dayStr string) (models.Date, bool) {
	month, ok := months[strings.ToLower(monthStr)]
	if !ok {
		return models.Date{}, false
	}
	year, _ := strconv.Atoi(yearStr)
	day, _ := strconv.Atoi(dayStr)
	if !inYearRange(year) || day < 1 || day > 31 {
		return models.Date{}, false
	}
	d := models.NewDate(year, month, day)
	// 31. Februar o.ä. ablehnen
	if d.Time().Month() != month {
		return models.Date{}, false
	}
	return d, true
}

func yearSpan(from, to int, precision models.DatePrecision, text string) ParsedDate {
	start := models.NewDate(from, time.January, 1)
	end := models.NewDate(to, time.December, 31)
	return ParsedDate{Start: &start, End: &end, Precision: precision, Text: text}
}

func inYearRange(y int) bool {
	return y >= minYear && y <= maxYear
}

var dashReplacer = strings.NewReplacer("–", "-", "—", "-", "‒", "-", "−", "-")

func normalizeDashes(s string) string {
	return dashReplacer.Replace(s)
}
