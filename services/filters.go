package services

import (
	"strings"

	"gorm.io/gorm"

	"red-subcontinent/models"
)

const (
	MinYear = 1000
	MaxYear = 2100

	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ConflictFilters sind die Filter der Konfliktliste. Nil bzw. leere Felder
// schränken nicht ein.
type ConflictFilters struct {
	YearStart     *int
	YearEnd       *int
	Types         []models.ConflictType
	MinCasualties *int64
	MaxCasualties *int64
	Region        string
	Search        string
}

// Validate prüft Wertebereiche und die Reihenfolge der Grenzen.
func (f ConflictFilters) Validate() error {
	if err := validateYears(f.YearStart, f.YearEnd); err != nil {
		return err
	}
	for _, t := range f.Types {
		if !t.Valid() {
			return invalidParam("conflict_type", "unknown conflict type %q", t)
		}
	}
	if f.MinCasualties != nil && *f.MinCasualties < 0 {
		return invalidParam("min_casualties", "must be >= 0")
	}
	if f.MaxCasualties != nil && *f.MaxCasualties < 0 {
		return invalidParam("max_casualties", "must be >= 0")
	}
	if f.MinCasualties != nil && f.MaxCasualties != nil && *f.MinCasualties > *f.MaxCasualties {
		return invalidParam("min_casualties", "must not exceed max_casualties")
	}
	return nil
}

func validateYears(start, end *int) error {
	if start != nil && (*start < MinYear || *start > MaxYear) {
		return invalidParam("year_start", "must be between %d and %d", MinYear, MaxYear)
	}
	if end != nil && (*end < MinYear || *end > MaxYear) {
		return invalidParam("year_end", "must be between %d and %d", MinYear, MaxYear)
	}
	if start != nil && end != nil && *start > *end {
		return invalidParam("year_start", "must not exceed year_end")
	}
	return nil
}

// scope übersetzt die Filter in WHERE-Bedingungen.
func (f ConflictFilters) scope(q *gorm.DB) *gorm.DB {
	q = yearOverlap(q, f.YearStart, f.YearEnd)
	if len(f.Types) > 0 {
		q = q.Where("conflict_type IN ?", f.Types)
	}
	if f.MinCasualties != nil {
		q = q.Where("casualties_best >= ?", *f.MinCasualties)
	}
	if f.MaxCasualties != nil {
		q = q.Where("casualties_best <= ?", *f.MaxCasualties)
	}
	if s := strings.TrimSpace(f.Region); s != "" {
		q = q.Where("LOWER(primary_region) LIKE ? ESCAPE '\\'", likePattern(s))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description_short) LIKE ? ESCAPE '\\')", p, p)
	}
	return q
}

// yearOverlap behält Datensätze, deren Zeitraum [start, end] den Bereich
// schneidet. Undatierte Datensätze fallen heraus, sobald eine Grenze gesetzt ist.
func yearOverlap(q *gorm.DB, start, end *int) *gorm.DB {
	if start == nil && end == nil {
		return q
	}
	q = q.Where("start_year IS NOT NULL")
	if start != nil {
		q = q.Where("COALESCE(end_year, start_year) >= ?", *start)
	}
	if end != nil {
		q = q.Where("start_year <= ?", *end)
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// chronological ist die Standardsortierung: Startdatum aufsteigend,
// undatierte zuletzt, Slug als stabiler Tiebreaker.
const chronological = "(start_date IS NULL), start_date, slug"
