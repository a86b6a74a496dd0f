package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"red-subcontinent/models"
)

// ConflictService beantwortet alle lesenden Abfragen auf den Konfliktbestand.
type ConflictService struct {
	DB          *gorm.DB
	Logger      *zap.Logger
	MaxPageSize int
	// Now liefert das aktuelle Jahr für die Zeitleisten-Voreinstellung.
	Now func() time.Time
}

// NewConflictService erstellt einen Service mit Standard-Seitengröße.
func NewConflictService(db *gorm.DB, logger *zap.Logger, maxPageSize int) *ConflictService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &ConflictService{DB: db, Logger: logger, MaxPageSize: maxPageSize, Now: time.Now}
}

func (s *ConflictService) maxPageSize() int {
	if s.MaxPageSize > 0 {
		return s.MaxPageSize
	}
	return MaxPageSize
}

func (s *ConflictService) currentYear() int {
	if s.Now != nil {
		return s.Now().Year()
	}
	return time.Now().Year()
}

// ListConflicts liefert eine Seite der gefilterten Konfliktliste.
func (s *ConflictService) ListConflicts(ctx context.Context, f ConflictFilters, page, pageSize int) (*models.PaginatedConflicts, error) {
	if page < 1 {
		return nil, invalidParam("page", "must be >= 1")
	}
	if pageSize < 1 || pageSize > s.maxPageSize() {
		return nil, invalidParam("page_size", "must be between 1 and %d", s.maxPageSize())
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := f.scope(db.Model(&models.Conflict{})).Count(&total).Error; err != nil {
		return nil, storeError("count conflicts", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	out := &models.PaginatedConflicts{
		Items:      []models.ConflictListItem{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
	// Jenseits der letzten Seite wird kein Offset berechnet, (page-1)*pageSize kann überlaufen
	if page > totalPages {
		return out, nil
	}

	var conflicts []models.Conflict
	err := f.scope(db.Model(&models.Conflict{})).
		Preload("Locations").
		Order(chronological).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&conflicts).Error
	if err != nil {
		return nil, storeError("list conflicts", err)
	}

	out.Items = make([]models.ConflictListItem, 0, len(conflicts))
	for i := range conflicts {
		out.Items = append(out.Items, conflicts[i].ListItem())
	}
	return out, nil
}

// GetConflictByID lädt einen Datensatz samt Orten, Akteuren und Quellen.
func (s *ConflictService) GetConflictByID(ctx context.Context, id string) (*models.ConflictDetail, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidParam("id", "not a valid UUID")
	}
	return s.getDetail(ctx, "id = ?", parsed)
}

// GetConflictBySlug sucht exakt und case-sensitiv nach dem Slug.
func (s *ConflictService) GetConflictBySlug(ctx context.Context, slug string) (*models.ConflictDetail, error) {
	if slug == "" {
		return nil, invalidParam("slug", "must not be empty")
	}
	return s.getDetail(ctx, "slug = ?", slug)
}

func (s *ConflictService) getDetail(ctx context.Context, cond string, arg interface{}) (*models.ConflictDetail, error) {
	var c models.Conflict
	err := s.DB.WithContext(ctx).
		Preload("Locations").
		Preload("Actors").
		Preload("Sources").
		Where(cond, arg).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("get conflict", err)
	}
	return &c, nil
}

// GeoJSON liefert einen Punkt pro Datensatz mit verorteter Location.
// Datensätze ohne Koordinaten werden übersprungen.
func (s *ConflictService) GeoJSON(ctx context.Context, yearStart, yearEnd *int) (*models.FeatureCollection, error) {
	if err := validateYears(yearStart, yearEnd); err != nil {
		return nil, err
	}
	var conflicts []models.Conflict
	err := yearOverlap(s.DB.WithContext(ctx).Model(&models.Conflict{}), yearStart, yearEnd).
		Preload("Locations").
		Order(chronological).
		Find(&conflicts).Error
	if err != nil {
		return nil, storeError("geojson", err)
	}

	fc := &models.FeatureCollection{Type: "FeatureCollection", Features: make([]models.Feature, 0, len(conflicts))}
	for i := range conflicts {
		c := &conflicts[i]
		loc := c.MapLocation()
		if loc == nil {
			continue
		}
		fc.Features = append(fc.Features, models.Feature{
			Type: "Feature",
			Geometry: models.Geometry{
				Type:        "Point",
				Coordinates: []float64{*loc.Longitude, *loc.Latitude},
			},
			Properties: models.FeatureProperties{
				ID:            c.ID,
				Slug:          c.Slug,
				Title:         c.Title,
				ConflictType:  c.ConflictType,
				StartDate:     c.StartDate,
				EndDate:       c.EndDate,
				Casualties:    c.CasualtiesBest,
				LocationName:  loc.Name,
				PrimaryRegion: c.PrimaryRegion,
			},
		})
	}
	return fc, nil
}

type bucketRow struct {
	Bucket     int
	Count      int64
	Casualties int64
}

// Timeline aggregiert Datensätze nach Startjahr in Buckets der gewählten
// Breite. Leere Buckets werden nur ergänzt, wenn sie vollständig im Bereich liegen.
func (s *ConflictService) Timeline(ctx context.Context, yearStart, yearEnd *int, granularity models.Granularity) ([]models.TimelinePoint, error) {
	if granularity == "" {
		granularity = models.GranularityDecade
	}
	width := granularity.Width()
	if width == 0 {
		return nil, invalidParam("granularity", "must be one of year, decade, century")
	}
	if err := validateYears(yearStart, yearEnd); err != nil {
		return nil, err
	}
	ys, ye := MinYear, s.currentYear()
	if yearStart != nil {
		ys = *yearStart
		// ohne year_end reicht die Zeitleiste mindestens bis year_start
		ye = max(ye, ys)
	}
	if yearEnd != nil {
		ye = *yearEnd
	}
	if ys > ye {
		return nil, invalidParam("year_start", "must not exceed year_end")
	}

	db := s.DB.WithContext(ctx)
	var rows []bucketRow
	err := db.Model(&models.Conflict{}).
		Select(bucketExpr(width)+" AS bucket, COUNT(*) AS count, COALESCE(SUM(casualties_best), 0) AS casualties").
		Where("start_year IS NOT NULL AND start_year >= ? AND start_year <= ?", ys, ye).
		Group("bucket").
		Order("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("timeline", err)
	}

	points := make(map[int]*models.TimelinePoint, len(rows))
	for _, r := range rows {
		points[r.Bucket] = &models.TimelinePoint{
			Year:       r.Bucket,
			Count:      r.Count,
			Casualties: r.Casualties,
			Conflicts:  []models.ConflictListItem{},
		}
	}

	if granularity != models.GranularityCentury && len(rows) > 0 {
		var conflicts []models.Conflict
		err := db.Model(&models.Conflict{}).
			Where("start_year IS NOT NULL AND start_year >= ? AND start_year <= ?", ys, ye).
			Preload("Locations").
			Order(chronological).
			Find(&conflicts).Error
		if err != nil {
			return nil, storeError("timeline conflicts", err)
		}
		for i := range conflicts {
			b := (*conflicts[i].StartYear / width) * width
			if p, ok := points[b]; ok {
				p.Conflicts = append(p.Conflicts, conflicts[i].ListItem())
			}
		}
	}

	first := ((ys + width - 1) / width) * width
	for b := first; b+width-1 <= ye; b += width {
		if _, ok := points[b]; !ok {
			points[b] = &models.TimelinePoint{Year: b, Conflicts: []models.ConflictListItem{}}
		}
	}

	out := make([]models.TimelinePoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
