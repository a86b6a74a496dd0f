package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidRecord wird von Validate für verletzte Datensatz-Invarianten geliefert.
var ErrInvalidRecord = errors.New("invalid conflict record")

// Conflict ist ein dokumentiertes historisches Ereignis.
type Conflict struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slug          string        `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Title         string        `json:"title" gorm:"size:500;not null"`
	ConflictType  ConflictType  `json:"conflict_type" gorm:"size:32;index;not null"`
	ConflictScale ConflictScale `json:"conflict_scale" gorm:"size:32;not null;default:'regional'"`

	StartDate     *Date         `json:"start_date"`
	EndDate       *Date         `json:"end_date"`
	DatePrecision DatePrecision `json:"date_precision" gorm:"size:16;default:'year'"`
	// Aus StartDate/EndDate abgeleitet, für dialektunabhängige Jahresfilter
	StartYear *int `json:"-" gorm:"index"`
	EndYear   *int `json:"-" gorm:"index"`

	CasualtiesLow              *int64 `json:"casualties_low"`
	CasualtiesHigh             *int64 `json:"casualties_high"`
	CasualtiesBest             *int64 `json:"casualties_best" gorm:"index"`
	CasualtiesIncludesInjuries bool   `json:"casualties_includes_injuries" gorm:"default:false"`
	UncertaintyNotes           string `json:"uncertainty_notes,omitempty" gorm:"type:text"`

	PrimaryRegion    string `json:"primary_region,omitempty" gorm:"size:200;index"`
	DescriptionShort string `json:"description_short,omitempty" gorm:"size:500"`
	DescriptionLong  string `json:"description_long,omitempty" gorm:"type:text"`
	ContentWarning   string `json:"content_warning,omitempty" gorm:"size:200"`
	Notes            string `json:"notes,omitempty" gorm:"type:text"`

	// Rohfelder, aus denen der Datensatz bereinigt wurde
	Provenance datatypes.JSON `json:"provenance,omitempty"`

	Locations []ConflictLocation `json:"locations" gorm:"constraint:OnDelete:CASCADE"`
	Actors    []ConflictActor    `json:"actors" gorm:"constraint:OnDelete:CASCADE"`
	Sources   []ConflictSource   `json:"sources" gorm:"constraint:OnDelete:CASCADE"`
}

func (Conflict) TableName() string {
	return "conflicts"
}

// BeforeCreate vergibt eine UUID, falls noch keine gesetzt ist.
func (c *Conflict) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeSave hält die abgeleiteten Jahresspalten aktuell.
func (c *Conflict) BeforeSave(tx *gorm.DB) error {
	c.SyncYears()
	return nil
}

// SyncYears setzt StartYear/EndYear aus den Datumsfeldern.
func (c *Conflict) SyncYears() {
	c.StartYear, c.EndYear = nil, nil
	if c.StartDate != nil {
		y := c.StartDate.Year()
		c.StartYear = &y
	}
	if c.EndDate != nil {
		y := c.EndDate.Year()
		c.EndYear = &y
	}
}

// PrimaryLocation liefert den als primär markierten Ort oder nil.
func (c *Conflict) PrimaryLocation() *ConflictLocation {
	for i := range c.Locations {
		if c.Locations[i].IsPrimary {
			return &c.Locations[i]
		}
	}
	return nil
}

// MapLocation liefert den Ort für einen Kartenpunkt: den primären, falls er
// Koordinaten hat, sonst den ersten mit Koordinaten.
func (c *Conflict) MapLocation() *ConflictLocation {
	if p := c.PrimaryLocation(); p != nil && p.HasCoordinates() {
		return p
	}
	for i := range c.Locations {
		if c.Locations[i].HasCoordinates() {
			return &c.Locations[i]
		}
	}
	return nil
}

// Validate prüft die Invarianten eines Datensatzes.
func (c *Conflict) Validate() error {
	if c.Slug == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidRecord)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: %s: empty title", ErrInvalidRecord, c.Slug)
	}
	if !c.ConflictType.Valid() {
		return fmt.Errorf("%w: %s: unknown conflict_type %q", ErrInvalidRecord, c.Slug, c.ConflictType)
	}
	if !c.ConflictScale.Valid() {
		return fmt.Errorf("%w: %s: unknown conflict_scale %q", ErrInvalidRecord, c.Slug, c.ConflictScale)
	}
	if c.DatePrecision != "" && !c.DatePrecision.Valid() {
		return fmt.Errorf("%w: %s: unknown date_precision %q", ErrInvalidRecord, c.Slug, c.DatePrecision)
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return fmt.Errorf("%w: %s: end_date %s before start_date %s", ErrInvalidRecord, c.Slug, c.EndDate, c.StartDate)
	}
	if err := ValidateCasualties(c.CasualtiesLow, c.CasualtiesBest, c.CasualtiesHigh); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, c.Slug, err)
	}
	primaries := 0
	for _, l := range c.Locations {
		if l.IsPrimary {
			primaries++
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, c.Slug, err)
		}
	}
	if primaries > 1 {
		return fmt.Errorf("%w: %s: %d primary locations", ErrInvalidRecord, c.Slug, primaries)
	}
	for _, a := range c.Actors {
		if !a.Role.Valid() {
			return fmt.Errorf("%w: %s: actor %q has unknown role %q", ErrInvalidRecord, c.Slug, a.Name, a.Role)
		}
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: %s: no sources", ErrInvalidRecord, c.Slug)
	}
	for _, s := range c.Sources {
		if !s.SourceType.Valid() {
			return fmt.Errorf("%w: %s: unknown source_type %q", ErrInvalidRecord, c.Slug, s.SourceType)
		}
	}
	return nil
}

// ValidateCasualties prüft low ≤ best ≤ high für alle gesetzten Werte.
func ValidateCasualties(low, best, high *int64) error {
	for _, v := range []*int64{low, best, high} {
		if v != nil && *v < 0 {
			return fmt.Errorf("negative casualty figure %d", *v)
		}
	}
	if low != nil && high != nil && *low > *high {
		return fmt.Errorf("casualties_low %d > casualties_high %d", *low, *high)
	}
	if low != nil && best != nil && *low > *best {
		return fmt.Errorf("casualties_low %d > casualties_best %d", *low, *best)
	}
	if best != nil && high != nil && *best > *high {
		return fmt.Errorf("casualties_best %d > casualties_high %d", *best, *high)
	}
	return nil
}

// ConflictLocation ist ein Ort, der einem Ereignis zugeordnet ist.
type ConflictLocation struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ConflictID   uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	Name         string    `json:"name,omitempty" gorm:"size:200"`
	LocationType string    `json:"location_type,omitempty" gorm:"size:50"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	IsPrimary    bool      `json:"is_primary" gorm:"default:false"`
	Notes        string    `json:"notes,omitempty" gorm:"type:text"`
}

func (ConflictLocation) TableName() string {
	return "conflict_locations"
}

func (l *ConflictLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *ConflictLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

func (l *ConflictLocation) Validate() error {
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return fmt.Errorf("location %q has only one coordinate", l.Name)
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return fmt.Errorf("location %q latitude %f out of range", l.Name, *l.Latitude)
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("location %q longitude %f out of range", l.Name, *l.Longitude)
	}
	return nil
}

// ConflictActor ist eine beteiligte Partei.
type ConflictActor struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ConflictID uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	Name       string    `json:"name" gorm:"size:300;index;not null"`
	Role       ActorRole `json:"role" gorm:"size:32;index;not null"`
	Casualties *int64    `json:"casualties"`
	Notes      string    `json:"notes,omitempty" gorm:"type:text"`
}

func (ConflictActor) TableName() string {
	return "conflict_actors"
}

func (a *ConflictActor) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ConflictSource belegt einen Datensatz.
type ConflictSource struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ConflictID       uuid.UUID  `json:"-" gorm:"type:uuid;index;not null"`
	SourceType       SourceType `json:"source_type" gorm:"size:32;not null"`
	Title            string     `json:"title,omitempty" gorm:"size:500"`
	URL              string     `json:"url,omitempty" gorm:"size:1000"`
	CitationText     string     `json:"citation_text,omitempty" gorm:"type:text"`
	AccessedDate     *Date      `json:"accessed_date"`
	ReliabilityNotes string     `json:"reliability_notes,omitempty" gorm:"type:text"`
}

func (ConflictSource) TableName() string {
	return "conflict_sources"
}

func (s *ConflictSource) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AllModels listet alle Tabellen für AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&Conflict{}, &ConflictLocation{}, &ConflictActor{}, &ConflictSource{}}
}
