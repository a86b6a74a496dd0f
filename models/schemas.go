package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictListItem ist die Projektion für Listenansichten, ohne Langtexte.
type ConflictListItem struct {
	ID              uuid.UUID         `json:"id"`
	Slug            string            `json:"slug"`
	Title           string            `json:"title"`
	ConflictType    ConflictType      `json:"conflict_type"`
	ConflictScale   ConflictScale     `json:"conflict_scale"`
	StartDate       *Date             `json:"start_date"`
	EndDate         *Date             `json:"end_date"`
	CasualtiesBest  *int64            `json:"casualties_best"`
	PrimaryRegion   string            `json:"primary_region,omitempty"`
	PrimaryLocation *ConflictLocation `json:"primary_location"`
}

// ListItem projiziert einen Datensatz auf seine Listenansicht.
func (c *Conflict) ListItem() ConflictListItem {
	return ConflictListItem{
		ID:              c.ID,
		Slug:            c.Slug,
		Title:           c.Title,
		ConflictType:    c.ConflictType,
		ConflictScale:   c.ConflictScale,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		CasualtiesBest:  c.CasualtiesBest,
		PrimaryRegion:   c.PrimaryRegion,
		PrimaryLocation: c.PrimaryLocation(),
	}
}

// Validate prüft die Felder, die eine Listenansicht trägt.
func (i *ConflictListItem) Validate() error {
	if i.Slug == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidRecord)
	}
	if !i.ConflictType.Valid() {
		return fmt.Errorf("%w: %s: unknown conflict_type %q", ErrInvalidRecord, i.Slug, i.ConflictType)
	}
	if !i.ConflictScale.Valid() {
		return fmt.Errorf("%w: %s: unknown conflict_scale %q", ErrInvalidRecord, i.Slug, i.ConflictScale)
	}
	if i.StartDate != nil && i.EndDate != nil && i.EndDate.Before(*i.StartDate) {
		return fmt.Errorf("%w: %s: end_date before start_date", ErrInvalidRecord, i.Slug)
	}
	if i.CasualtiesBest != nil && *i.CasualtiesBest < 0 {
		return fmt.Errorf("%w: %s: negative casualties_best", ErrInvalidRecord, i.Slug)
	}
	return nil
}

// ConflictDetail ist die vollständige Darstellung eines Datensatzes.
type ConflictDetail = Conflict

// PaginatedConflicts ist eine Seite der Konfliktliste.
type PaginatedConflicts struct {
	Items      []ConflictListItem `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// Geometry ist eine GeoJSON-Punktgeometrie, Koordinaten als [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties trägt alles, was ein Karten-Popup ohne Folgeanfrage braucht.
type FeatureProperties struct {
	ID            uuid.UUID    `json:"id"`
	Slug          string       `json:"slug"`
	Title         string       `json:"title"`
	ConflictType  ConflictType `json:"conflict_type"`
	StartDate     *Date        `json:"start_date"`
	EndDate       *Date        `json:"end_date"`
	Casualties    *int64       `json:"casualties"`
	LocationName  string       `json:"location_name,omitempty"`
	PrimaryRegion string       `json:"primary_region,omitempty"`
}

type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// TimelinePoint ist ein Bucket der Zeitleiste.
type TimelinePoint struct {
	Year       int                `json:"year"`
	Count      int64              `json:"count"`
	Casualties int64              `json:"casualties"`
	Conflicts  []ConflictListItem `json:"conflicts"`
}

// StatsSummary ist der Gesamtüberblick über den Datenbestand.
type StatsSummary struct {
	TotalConflicts      int64            `json:"total_conflicts"`
	TotalCasualtiesLow  int64            `json:"total_casualties_low"`
	TotalCasualtiesHigh int64            `json:"total_casualties_high"`
	TotalCasualtiesBest int64            `json:"total_casualties_best"`
	EarliestYear        *int             `json:"earliest_year"`
	LatestYear          *int             `json:"latest_year"`
	ByType              map[string]int64 `json:"by_type"`
	ByCentury           map[string]int64 `json:"by_century"`
}

type RegionStat struct {
	Region          string `json:"region"`
	ConflictCount   int64  `json:"conflict_count"`
	TotalCasualties int64  `json:"total_casualties"`
}

type DecadeStat struct {
	Decade          int   `json:"decade"`
	ConflictCount   int64 `json:"conflict_count"`
	TotalCasualties int64 `json:"total_casualties"`
}

// ActorSummary fasst gleichnamige Akteure gleicher Rolle zusammen.
type ActorSummary struct {
	Name            string    `json:"name"`
	Role            ActorRole `json:"role"`
	AppearanceCount int64     `json:"appearance_count"`
}

// ErrorResponse ist der Fehlerkörper aller API-Antworten.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
