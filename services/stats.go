package services

import (
	"context"
	"fmt"

	"red-subcontinent/models"
)

const (
	DefaultRegionLimit = 20
	MaxRegionLimit     = 100
	DefaultCentury     = 1900
	maxCentury         = 2000
)

// bucketExpr rundet das Startjahr auf den Bucket-Anfang ab. Beide Dialekte
// dividieren Ganzzahlen ganzzahlig.
func bucketExpr(width int) string {
	return fmt.Sprintf("(start_year / %d) * %d", width, width)
}

type casualtySums struct {
	Low  int64
	High int64
	Best int64
}

type yearBounds struct {
	Earliest *int
	Latest   *int
}

type typeCount struct {
	ConflictType string
	Count        int64
}

type centuryCount struct {
	Century int
	Count   int64
}

// StatsSummary liefert den Gesamtüberblick über den Bestand.
func (s *ConflictService) StatsSummary(ctx context.Context) (*models.StatsSummary, error) {
	db := s.DB.WithContext(ctx)
	out := &models.StatsSummary{
		ByType:    map[string]int64{},
		ByCentury: map[string]int64{},
	}

	if err := db.Model(&models.Conflict{}).Count(&out.TotalConflicts).Error; err != nil {
		return nil, storeError("count conflicts", err)
	}

	var sums casualtySums
	err := db.Model(&models.Conflict{}).
		Select("COALESCE(SUM(casualties_low), 0) AS low, COALESCE(SUM(casualties_high), 0) AS high, COALESCE(SUM(casualties_best), 0) AS best").
		Scan(&sums).Error
	if err != nil {
		return nil, storeError("casualty sums", err)
	}
	out.TotalCasualtiesLow, out.TotalCasualtiesHigh, out.TotalCasualtiesBest = sums.Low, sums.High, sums.Best

	var bounds yearBounds
	err = db.Model(&models.Conflict{}).
		Select("MIN(start_year) AS earliest, MAX(COALESCE(end_year, start_year)) AS latest").
		Where("start_year IS NOT NULL").
		Scan(&bounds).Error
	if err != nil {
		return nil, storeError("year bounds", err)
	}
	out.EarliestYear, out.LatestYear = bounds.Earliest, bounds.Latest

	var types []typeCount
	err = db.Model(&models.Conflict{}).
		Select("conflict_type, COUNT(*) AS count").
		Group("conflict_type").
		Scan(&types).Error
	if err != nil {
		return nil, storeError("count by type", err)
	}
	for _, t := range types {
		out.ByType[t.ConflictType] = t.Count
	}

	var centuries []centuryCount
	err = db.Model(&models.Conflict{}).
		Select(bucketExpr(100) + " AS century, COUNT(*) AS count").
		Where("start_year IS NOT NULL").
		Group("century").
		Scan(&centuries).Error
	if err != nil {
		return nil, storeError("count by century", err)
	}
	for _, c := range centuries {
		out.ByCentury[fmt.Sprintf("%ds", c.Century)] = c.Count
	}
	return out, nil
}

// StatsByRegion gruppiert nach PrimaryRegion, häufigste zuerst.
func (s *ConflictService) StatsByRegion(ctx context.Context, limit int) ([]models.RegionStat, error) {
	if limit < 1 || limit > MaxRegionLimit {
		return nil, invalidParam("limit", "must be between 1 and %d", MaxRegionLimit)
	}
	out := []models.RegionStat{}
	err := s.DB.WithContext(ctx).Model(&models.Conflict{}).
		Select("primary_region AS region, COUNT(*) AS conflict_count, COALESCE(SUM(casualties_best), 0) AS total_casualties").
		Where("primary_region IS NOT NULL AND primary_region <> ''").
		Group("primary_region").
		Order("conflict_count DESC, region").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, storeError("stats by region", err)
	}
	return out, nil
}

// StatsByDecade zählt die Datensätze je Jahrzehnt eines Jahrhunderts.
func (s *ConflictService) StatsByDecade(ctx context.Context, century int) ([]models.DecadeStat, error) {
	if century < MinYear || century > maxCentury || century%100 != 0 {
		return nil, invalidParam("century", "must be a century start between %d and %d", MinYear, maxCentury)
	}
	out := []models.DecadeStat{}
	err := s.DB.WithContext(ctx).Model(&models.Conflict{}).
		Select(bucketExpr(10)+" AS decade, COUNT(*) AS conflict_count, COALESCE(SUM(casualties_best), 0) AS total_casualties").
		Where("start_year IS NOT NULL AND start_year >= ? AND start_year <= ?", century, century+99).
		Group("decade").
		Order("decade").
		Scan(&out).Error
	if err != nil {
		return nil, storeError("stats by decade", err)
	}
	return out, nil
}
